package library

import "testing"

func TestSortFolders(t *testing.T) {
	folders := []*Folder{
		{ID: "b", Name: "B"},
		{ID: TrashFolderID, Name: "Trash", IsTrash: true},
		{ID: "a", Name: "A"},
	}

	SortFolders(folders, "ja")

	want := []string{"A", "B", "Trash"}
	for i, f := range folders {
		if f.Name != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], f.Name)
		}
	}
}

func TestSortFolders_TrashLastEvenWhenNameSortsFirst(t *testing.T) {
	folders := []*Folder{
		{ID: TrashFolderID, Name: "0 trash", IsTrash: true},
		{ID: "z", Name: "Z"},
	}

	SortFolders(folders, "invalid-locale-tag-!!")

	if !folders[1].IsTrash {
		t.Fatalf("expected trash folder last, got %q first", folders[0].Name)
	}
}

func TestSortFiles(t *testing.T) {
	files := []*File{{Name: "請求書_2.pdf"}, {Name: "b.xlsx"}, {Name: "a.pdf"}}

	SortFiles(files, "ja")

	if files[0].Name != "a.pdf" || files[1].Name != "b.xlsx" {
		t.Fatalf("unexpected order: %q, %q, %q", files[0].Name, files[1].Name, files[2].Name)
	}
}
