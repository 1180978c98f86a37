package classify

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    Category
		wantErr bool
	}{
		{input: "Produtivo", want: CategoryProductive},
		{input: "produtivo", want: CategoryProductive},
		{input: "PRODUTIVO", want: CategoryProductive},
		{input: "  Improdutivo  ", want: CategoryUnproductive},
		{input: "improdutivo", want: CategoryUnproductive},
		{input: "productive", wantErr: true},
		{input: "", wantErr: true},
		{input: "spam", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCategory(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCategory(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	for _, c := range []Category{CategoryProductive, CategoryUnproductive} {
		got, err := ParseCategory(c.String())
		if err != nil {
			t.Fatalf("round trip %v: %v", c, err)
		}
		if got != c {
			t.Errorf("round trip %v = %v", c, got)
		}
	}
}

func TestNewResultBounds(t *testing.T) {
	if _, err := NewResult(CategoryProductive, 0.95); err != nil {
		t.Errorf("NewResult(0.95): %v", err)
	}
	if _, err := NewResult(CategoryProductive, 0); err != nil {
		t.Errorf("NewResult(0): %v", err)
	}
	if _, err := NewResult(CategoryProductive, 1); err != nil {
		t.Errorf("NewResult(1): %v", err)
	}
	if _, err := NewResult(CategoryProductive, 1.2); err == nil {
		t.Error("NewResult(1.2) accepted, want error")
	}
	if _, err := NewResult(CategoryProductive, -0.1); err == nil {
		t.Error("NewResult(-0.1) accepted, want error")
	}
}
