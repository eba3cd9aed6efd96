package config

import "time"

var Conf Config

type Config struct {
	Server     Server     `mapstructure:"server" json:"server" yaml:"server"`
	Datasource Datasource `mapstructure:"database" json:"database" yaml:"database"`
	Library    Library    `mapstructure:"library" json:"library" yaml:"library"`
	Invoice    Invoice    `mapstructure:"invoice" json:"invoice" yaml:"invoice"`
	Extraction Extraction `mapstructure:"extraction" json:"extraction" yaml:"extraction"`
	Google     Google     `mapstructure:"google" json:"google" yaml:"google"`
	Session    Session    `mapstructure:"session" json:"session" yaml:"session"`
}

type Server struct {
	Port            string        `mapstructure:"port" json:"port" yaml:"port"`
	CORSOrigins     []string      `mapstructure:"cors_origins" json:"corsOrigins" yaml:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdownTimeout" yaml:"shutdown_timeout"`
	// 빌드된 프런트엔드 디렉터리. 비어 있으면 API만 제공
	WebDir string `mapstructure:"web_dir" json:"webDir" yaml:"web_dir"`
}

type Datasource struct {
	URL string `mapstructure:"url" json:"url" yaml:"url"`
}

// Library는 폴더/파일 관리 설정입니다
type Library struct {
	TrashName      string `mapstructure:"trash_name" json:"trashName" yaml:"trash_name"`
	Locale         string `mapstructure:"locale" json:"locale" yaml:"locale"`
	AcceptCSV      bool   `mapstructure:"accept_csv" json:"acceptCsv" yaml:"accept_csv"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" json:"maxUploadBytes" yaml:"max_upload_bytes"`
}

type Invoice struct {
	FontRegular string `mapstructure:"font_regular" json:"fontRegular" yaml:"font_regular"`
	FontBold    string `mapstructure:"font_bold" json:"fontBold" yaml:"font_bold"`
}

// Extraction은 PDF 청구서 금액 추출(completion API) 설정입니다
type Extraction struct {
	Enabled     bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	APIKey      string        `mapstructure:"api_key" json:"-" yaml:"-"`
	Model       string        `mapstructure:"model" json:"model" yaml:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"baseUrl" yaml:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" json:"maxRetries" yaml:"max_retries"`
	Concurrency int           `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
}

type Google struct {
	ClientID  string   `mapstructure:"client_id" json:"clientId" yaml:"-"`
	PickerKey string   `mapstructure:"picker_key" json:"pickerKey" yaml:"-"`
	Scopes    []string `mapstructure:"scopes" json:"scopes" yaml:"scopes"`
	// 테스트/프록시용 엔드포인트 재정의
	Endpoint string `mapstructure:"endpoint" json:"-" yaml:"endpoint,omitempty"`
}

type Session struct {
	Secret        string        `mapstructure:"secret" json:"-" yaml:"-"`
	Issuer        string        `mapstructure:"issuer" json:"issuer" yaml:"issuer"`
	TTL           time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`
	CheckInterval time.Duration `mapstructure:"check_interval" json:"checkInterval" yaml:"check_interval"`
}
