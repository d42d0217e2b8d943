package fairy

import (
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func loadTestFont(t *testing.T) *Font {
	t.Helper()
	f, err := LoadFont(goregular.TTF, 16)
	if err != nil {
		t.Fatalf("LoadFont: %v", err)
	}
	return f
}

func TestLoadFontInvalid(t *testing.T) {
	if _, err := LoadFont([]byte("not a font"), 12); err == nil {
		t.Error("expected an error for garbage font data")
	}
}

func TestLabelSizedToText(t *testing.T) {
	f := loadTestFont(t)
	if f.LineHeight() <= 0 {
		t.Fatalf("LineHeight = %v", f.LineHeight())
	}
	l := NewLabel("l", f, "Hello", ColorWhite)
	w1 := l.Width()
	if w1 <= 0 || l.Height() <= 0 {
		t.Fatalf("size = %vx%v, want positive", w1, l.Height())
	}
	l.SetText("Hello, world")
	if l.Width() <= w1 {
		t.Errorf("width %v did not grow past %v", l.Width(), w1)
	}
	l.SetText("")
	if l.Width() != 0 {
		t.Errorf("empty label width = %v", l.Width())
	}
}

func TestLabelIsWrapperItem(t *testing.T) {
	s, r := newTestStage()
	l := NewLabel("l", loadTestFont(t), "ok", ColorWhite)
	s.Root().AddChild(l.Node)
	s.RenderFrame(newScreen())

	items := r.last()
	if len(items) != 1 || items[0].Wrapped != Wrapped(l) {
		t.Fatalf("items = %v, want the label", itemNames(items))
	}
	if l.Node.Owner != l {
		t.Error("Owner should point at the label")
	}
}
