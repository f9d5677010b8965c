package catalog

import (
	"strings"
	"testing"

	"github.com/rushteam/petmatch/core"
)

const sampleCSV = `Name,Type,Age(months),Gender,MaturitySize,FurLength,Fee,Color1_Name,Breed1_Name,Health,image_paths
Milo,Cat,3,Male,Small,Short,0,Black,Domestic Short Hair,Healthy,"['input/images/cat_001.jpg', 'input/images/cat_002.jpg']"
Luna,Dog,12,Female,Medium,Medium,100,Brown,Mixed Breed,Healthy,[input/images/dog_001.jpg]
Ghost,Cat,5,Male,Small,Short,0,White,Persian,Minor Injury,'input/images/cat_002.jpg'
`

func TestParseImagePaths(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"python list", "['a.jpg', 'b.jpg']", []string{"a.jpg", "b.jpg"}},
		{"double quotes", `["a.jpg","b.jpg"]`, []string{"a.jpg", "b.jpg"}},
		{"bare list", "[a.jpg, b.jpg]", []string{"a.jpg", "b.jpg"}},
		{"single quoted", "'a.jpg'", []string{"a.jpg"}},
		{"empty list", "[]", nil},
		{"blank", "  ", nil},
		{"code is not evaluated", "__import__('os').system('x')", []string{"__import__('os').system('x')"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseImagePaths(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseImagePaths(%q) = %q, want %q", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLoadCSV(t *testing.T) {
	c, err := LoadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	milo := c.Pet(0)
	if milo.Name != "Milo" || milo.AgeMonths != 3 || milo.Fee != 0 || milo.Breed != "Domestic Short Hair" {
		t.Errorf("unexpected first record: %+v", milo)
	}
	if len(milo.ImagePaths) != 2 || milo.ImagePaths[1] != "input/images/cat_002.jpg" {
		t.Errorf("image paths = %q", milo.ImagePaths)
	}
	for _, col := range AllColumns {
		if !c.HasColumn(col) {
			t.Errorf("missing column %q", col)
		}
	}
}

func TestLoadCSVInvalidNumeric(t *testing.T) {
	in := "Name,Age(months),Fee\nMilo,three,0\n"
	_, err := LoadCSV(strings.NewReader(in))
	if !core.IsInvalidInput(err) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
	if !strings.Contains(err.Error(), "row 1") || !strings.Contains(err.Error(), "Age(months)") {
		t.Errorf("error should name row and column: %v", err)
	}
}

func TestLoadCSVMissingColumns(t *testing.T) {
	c, err := LoadCSV(strings.NewReader("Name,Type\nMilo,Cat\n"))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if c.HasColumn(core.FieldFee) {
		t.Error("Fee should be reported as absent")
	}
}

func TestFindByImage(t *testing.T) {
	c, err := LoadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	tests := []struct {
		id       string
		wantName string
		wantOK   bool
	}{
		{"cat_001.jpg", "Milo", true},
		{"/other/dir/dog_001.jpg", "Luna", true},
		// cat_002.jpg 出现在两行，取第一行
		{"cat_002.jpg", "Milo", true},
		{"missing.jpg", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			p, _, ok := c.FindByImage(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && p.Name != tt.wantName {
				t.Errorf("name = %q, want %q", p.Name, tt.wantName)
			}
		})
	}

	dups := c.DuplicateImages()
	if rows := dups["cat_002.jpg"]; len(rows) != 2 || rows[0] != 0 || rows[1] != 2 {
		t.Errorf("duplicates = %v", dups)
	}
}

func TestImageID(t *testing.T) {
	tests := map[string]string{
		"input/images/a.jpg": "a.jpg",
		`C:\pets\b.png`:      "b.png",
		"c.jpeg":             "c.jpeg",
		"":                   "",
	}
	for in, want := range tests {
		if got := ImageID(in); got != want {
			t.Errorf("ImageID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCatalogVersion(t *testing.T) {
	mk := func(fee float64) []*core.Pet {
		return []*core.Pet{{Name: "A", Type: "Cat", Fee: fee, ImagePaths: []string{"a.jpg"}}}
	}
	a, b := New(mk(10)), New(mk(10))
	if a.Version() != b.Version() {
		t.Error("same content should have the same version")
	}
	if a.Version() == New(mk(20)).Version() {
		t.Error("different content should change the version")
	}
	if a.Version() == New(mk(10), core.FieldName, core.FieldFee).Version() {
		t.Error("different columns should change the version")
	}
}
