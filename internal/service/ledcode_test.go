package service

import (
	"testing"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/model"
)

func TestRGBMapperNearestRed(t *testing.T) {
	m := NewRGBMapper(nil)
	got := m.Nearest(colour.Color{R: 250, G: 5, B: 5})
	if got.Code != 4 || got.Color != (colour.Color{R: 255}) {
		t.Fatalf("unexpected match: %+v", got)
	}
}

func TestRGBMapperTieKeepsFirstEntry(t *testing.T) {
	m := NewRGBMapper(nil)
	got := m.Nearest(colour.Color{R: 0, G: 255, B: 221})
	if got.Code != 10 {
		t.Fatalf("expected first of two equidistant entries (10), got %d", got.Code)
	}
}

func TestHueMapper(t *testing.T) {
	m := NewHueMapper(nil)
	tests := []struct {
		name      string
		color     colour.Color
		wantCode  int
		wantColor colour.Color
	}{
		{name: "pure green", color: colour.Color{G: 255}, wantCode: 9, wantColor: colour.FromHue(120)},
		{name: "dark green keeps full saturation", color: colour.Color{G: 90}, wantCode: 9, wantColor: colour.Color{G: 255}},
		{name: "pure blue", color: colour.Color{B: 255}, wantCode: 15, wantColor: colour.Color{B: 255}},
		{name: "wraps to red near 360", color: colour.Color{R: 255, B: 21}, wantCode: 4, wantColor: colour.Color{R: 255}},
		{name: "tie resolves to lower bucket", color: colour.Color{R: 148, G: 255}, wantCode: 6, wantColor: colour.FromHue(80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Nearest(tt.color)
			if got.Code != tt.wantCode || got.Color != tt.wantColor {
				t.Fatalf("Nearest(%v) = %+v, want code %d colour %v", tt.color, got, tt.wantCode, tt.wantColor)
			}
		})
	}
	if colour.FromHue(120) != (colour.Color{G: 255}) {
		t.Fatalf("unexpected canonical green: %v", colour.FromHue(120))
	}
}

func TestMappersAreTotalAndDeterministic(t *testing.T) {
	mappers := map[string]LEDMapper{
		"hue": NewLEDMapper(model.LEDHue, nil, nil),
		"rgb": NewLEDMapper(model.LEDRGB, nil, nil),
	}
	for name, m := range mappers {
		t.Run(name, func(t *testing.T) {
			codes := map[int]bool{}
			for _, c := range m.Codes() {
				codes[c] = true
			}
			for r := 0; r < 256; r += 5 {
				for g := 0; g < 256; g += 5 {
					for b := 0; b < 256; b += 5 {
						c := colour.Color{R: uint8(r), G: uint8(g), B: uint8(b)}
						first := m.Nearest(c)
						if !codes[first.Code] {
							t.Fatalf("code %d for %v is not in the table", first.Code, c)
						}
						if first.Code == WhiteCode {
							t.Fatalf("mapper selected the reserved white code for %v", c)
						}
						if again := m.Nearest(c); again != first {
							t.Fatalf("non-deterministic match for %v: %+v then %+v", c, first, again)
						}
					}
				}
			}
		})
	}
}

func TestResolveLEDWhiteBypassesMapper(t *testing.T) {
	m := NewHueMapper(nil)
	got := ResolveLED(m, colour.White)
	if got.Code != WhiteCode || got.Color != colour.White {
		t.Fatalf("unexpected white resolution: %+v", got)
	}
	if got := ResolveLED(m, colour.Color{G: 255}); got.Code != 9 {
		t.Fatalf("unexpected green resolution: %+v", got)
	}
}

func TestEncodeCommand(t *testing.T) {
	tests := map[int]string{4: "4.", 9: "9.", 12: "12.", 19: "19."}
	for code, want := range tests {
		if got := EncodeCommand(code); got != want {
			t.Errorf("EncodeCommand(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestCustomHueTable(t *testing.T) {
	m := NewHueMapper([]model.HueBucket{{Hue: 0, Code: 1}, {Hue: 180, Code: 2}, {Hue: 360, Code: 1}})
	if got := m.Nearest(colour.Color{G: 255, B: 255}); got.Code != 2 {
		t.Fatalf("expected cyan to map to code 2, got %+v", got)
	}
}
