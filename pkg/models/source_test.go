package models

import "testing"

func TestSourceTypeDisplayTable(t *testing.T) {
	tests := []struct {
		srcType      SourceType
		wantIcon     string
		wantColor    string
		wantFallback string
	}{
		{SourceTypeMySQL, "database", "blue", "Est. 1.2M rows"},
		{SourceTypePostgreSQL, "server", "indigo", "Est. 3.4M rows"},
		{SourceTypeSQLServer, "hard-drive", "gray", "Est. 2.1M rows"},
		{SourceTypeMongoDB, "database", "green", "Est. 5.8M docs"},
		{SourceTypeCloud, "cloud", "sky", "Est. 850K rows"},
		{SourceTypeAPI, "cloud", "purple", "Est. 420K rows"},
		{SourceTypeCSV, "file-text", "orange", "Est. 150K rows"},
		{SourceTypeExcel, "file-text", "emerald", "Est. 75K rows"},
		{SourceTypeSQLDump, "file-code", "slate", "Est. 500K rows"},
	}

	for _, tt := range tests {
		t.Run(string(tt.srcType), func(t *testing.T) {
			if got := tt.srcType.Icon(); got != tt.wantIcon {
				t.Errorf("Icon() = %q, want %q", got, tt.wantIcon)
			}
			if got := tt.srcType.Color(); got != tt.wantColor {
				t.Errorf("Color() = %q, want %q", got, tt.wantColor)
			}
			if got := tt.srcType.FallbackVolume(); got != tt.wantFallback {
				t.Errorf("FallbackVolume() = %q, want %q", got, tt.wantFallback)
			}
			if !tt.srcType.Known() {
				t.Errorf("Known() = false for registered type %q", tt.srcType)
			}
		})
	}
}

func TestSourceTypeUnknown(t *testing.T) {
	unknown := SourceType("graph")

	if unknown.Known() {
		t.Error("Known() = true for unregistered type")
	}
	if got := unknown.FallbackVolume(); got != "N/A" {
		t.Errorf("FallbackVolume() = %q, want %q", got, "N/A")
	}
	if got := unknown.Icon(); got != "database" {
		t.Errorf("Icon() = %q, want default %q", got, "database")
	}
	if got := unknown.Color(); got != "gray" {
		t.Errorf("Color() = %q, want default %q", got, "gray")
	}
}

func TestSourcePatchIsEmpty(t *testing.T) {
	if !(SourcePatch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}

	name := "renamed"
	if (SourcePatch{Name: &name}).IsEmpty() {
		t.Error("patch with name should not be empty")
	}

	active := false
	if (SourcePatch{IsActive: &active}).IsEmpty() {
		t.Error("patch with is_active should not be empty")
	}
}
