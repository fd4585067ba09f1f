package hotkey

import (
	"reflect"
	"testing"
)

func TestParseHotkey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  []string
	}{
		{name: "Default combo", in: "Ctrl+Alt+PrintScreen", out: []string{"ctrl", "alt", "printscreen"}},
		{name: "Letter key", in: "Ctrl+Alt+Q", out: []string{"ctrl", "alt", "q"}},
		{name: "Win normalized to cmd", in: "Win+Shift+S", out: []string{"cmd", "shift", "s"}},
		{name: "Whitespace tolerated", in: " ctrl + alt + f9 ", out: []string{"ctrl", "alt", "f9"}},
		{name: "Empty parts skipped", in: "ctrl++q", out: []string{"ctrl", "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseHotkey(tt.in); !reflect.DeepEqual(got, tt.out) {
				t.Errorf("Expected %v, got %v", tt.out, got)
			}
		})
	}
}

func TestKeyNameToRawcodes(t *testing.T) {
	tests := []struct {
		name string
		key  string
		out  []uint16
	}{
		{name: "Ctrl has both variants", key: "ctrl", out: []uint16{162, 163}},
		{name: "Alt has both variants", key: "alt", out: []uint16{164, 165}},
		{name: "PrintScreen", key: "printscreen", out: []uint16{44}},
		{name: "Letter a", key: "a", out: []uint16{65}},
		{name: "Letter z", key: "z", out: []uint16{90}},
		{name: "Digit 0", key: "0", out: []uint16{48}},
		{name: "Digit 9", key: "9", out: []uint16{57}},
		{name: "F1", key: "f1", out: []uint16{112}},
		{name: "F9", key: "f9", out: []uint16{120}},
		{name: "F24", key: "f24", out: []uint16{135}},
		{name: "Case insensitive", key: "PrintScreen", out: []uint16{44}},
		{name: "Unknown key", key: "banana", out: nil},
		{name: "Fx out of range", key: "f25", out: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keyNameToRawcodes(tt.key); !reflect.DeepEqual(got, tt.out) {
				t.Errorf("Expected %v, got %v", tt.out, got)
			}
		})
	}
}
