package stylist

import (
	"errors"
	"testing"
)

func TestStylesCatalog(t *testing.T) {
	got := Styles()
	want := []string{"Cyberpunk", "Oil Painting", "Pencil Sketch", "Studio Ghibli", "3D Render"}
	if len(got) != len(want) {
		t.Fatalf("Styles() returned %d entries, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("Styles()[%d].Name = %q, want %q", i, got[i].Name, name)
		}
		if got[i].Prompt == "" {
			t.Errorf("Styles()[%d] has empty prompt", i)
		}
	}

	got[0].Name = "mutated"
	if Styles()[0].Name != "Cyberpunk" {
		t.Error("Styles() exposes the shared catalog")
	}
}

func TestSelectStyles(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []string
		wantErr bool
	}{
		{"empty selects all", nil, []string{"Cyberpunk", "Oil Painting", "Pencil Sketch", "Studio Ghibli", "3D Render"}, false},
		{"order preserved", []string{"3d render", " Cyberpunk "}, []string{"3D Render", "Cyberpunk"}, false},
		{"unknown", []string{"Cyberpunk", "Watercolor"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectStyles(tt.in)
			if tt.wantErr {
				var unknown *UnknownStyleError
				if !errors.As(err, &unknown) {
					t.Fatalf("SelectStyles() error = %v, want UnknownStyleError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectStyles() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("SelectStyles() = %d styles, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].Name != tt.want[i] {
					t.Errorf("SelectStyles()[%d] = %q, want %q", i, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestNewSourceImageEncodesOnce(t *testing.T) {
	src := NewSourceImage([]byte("hello"), "image/png", "a.png")
	if src.Encoded != "aGVsbG8=" {
		t.Errorf("Encoded = %q, want %q", src.Encoded, "aGVsbG8=")
	}
	info := src.Info()
	if info.Size != 5 || info.MIMEType != "image/png" || info.Filename != "a.png" {
		t.Errorf("Info() = %+v", info)
	}
}
