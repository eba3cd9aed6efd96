package library

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxNameLength = 255

// NameRequest는 폴더/파일 이름 입력(생성, 이름 변경)을 정의합니다
type NameRequest struct {
	Name string `json:"name"`
}

func (req *NameRequest) Validate() error {
	req.Name = strings.TrimSpace(req.Name)
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, maxNameLength),
		),
	)
}

func validateName(name string) (string, error) {
	req := NameRequest{Name: name}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return req.Name, nil
}
