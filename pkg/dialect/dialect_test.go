package dialect

import (
	"errors"
	"testing"

	"github.com/waterinstitute/hecmeta/pkg/config"
)

func TestNew(t *testing.T) {
	for _, d := range config.Dialects() {
		t.Run(string(d), func(t *testing.T) {
			drv, err := New(d)
			if err != nil {
				t.Fatalf("New(%q) error = %v", d, err)
			}
			if got := drv.Dialect(); got != d {
				t.Errorf("Dialect() = %q, want %q", got, d)
			}
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("swmm")
	if !errors.Is(err, ErrUnknownDialect) {
		t.Errorf("New(swmm) error = %v, want ErrUnknownDialect", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    config.Dialect
		wantErr bool
	}{
		{"ras", config.DialectRAS, false},
		{"hec-hms", config.DialectHMS, false},
		{"HEC-FIA", config.DialectFIA, false},
		{"go-consequences", config.DialectConsequences, false},
		{"swmm", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
