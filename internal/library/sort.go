package library

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func newCollator(locale string) *collate.Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Japanese
	}
	return collate.New(tag)
}

// SortFolders는 휴지통을 마지막에 두고 나머지를 로케일 순으로 정렬합니다
func SortFolders(folders []*Folder, locale string) {
	// Collator는 동시 사용 불가, 호출마다 생성
	c := newCollator(locale)
	sort.SliceStable(folders, func(i, j int) bool {
		a, b := folders[i], folders[j]
		if a.IsTrash != b.IsTrash {
			return b.IsTrash
		}
		return c.CompareString(a.Name, b.Name) < 0
	})
}

func SortFiles(files []*File, locale string) {
	c := newCollator(locale)
	sort.SliceStable(files, func(i, j int) bool {
		return c.CompareString(files[i].Name, files[j].Name) < 0
	})
}
