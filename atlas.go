package fairy

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Atlas holds the page textures of a packed sprite sheet and the named
// sub-textures cut from them. The atlas keeps its pages alive; the regions
// only reference them weakly.
type Atlas struct {
	// Pages contains the root textures indexed by page number.
	Pages   []*Texture
	regions map[string]*Texture
}

// Region returns the sub-texture for name. A missing name logs a warning and
// returns the shared placeholder, which renders magenta.
func (a *Atlas) Region(name string) *Texture {
	if t, ok := a.regions[name]; ok {
		return t
	}
	pkgLogger.Warn("fairy: atlas region not found, using placeholder", "region", name)
	return placeholderTexture()
}

// Lookup returns the sub-texture for name and whether it exists.
func (a *Atlas) Lookup(name string) (*Texture, bool) {
	t, ok := a.regions[name]
	return t, ok
}

// Names returns the region names in sorted order.
func (a *Atlas) Names() []string {
	names := make([]string, 0, len(a.regions))
	for name := range a.regions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of regions.
func (a *Atlas) Len() int { return len(a.regions) }

// Dispose disposes every page, which invalidates all regions.
func (a *Atlas) Dispose() {
	for _, p := range a.Pages {
		p.Dispose()
	}
	a.Pages = nil
	clear(a.regions)
}

var placeholder *Texture

// placeholderTexture returns a shared 1x1 magenta root texture.
func placeholderTexture() *Texture {
	if placeholder == nil || placeholder.Disposed() {
		placeholder = NewTexture(NewEbitenImage(ensureMagentaImage()))
	}
	return placeholder
}

// LoadAtlas parses TexturePacker JSON and cuts regions from the given page
// textures. Both the hash format (single "frames" object) and the array
// format ("textures" array with per-page frame lists) are accepted.
func LoadAtlas(jsonData []byte, pages []*Texture) (*Atlas, error) {
	var probe struct {
		Frames   json.RawMessage `json:"frames"`
		Textures json.RawMessage `json:"textures"`
	}
	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("fairy: failed to parse atlas JSON: %w", err)
	}

	atlas := &Atlas{
		Pages:   pages,
		regions: make(map[string]*Texture),
	}

	switch {
	case probe.Textures != nil:
		if err := parseArrayFormat(probe.Textures, atlas); err != nil {
			return nil, err
		}
	case probe.Frames != nil:
		if err := parseHashFrames(probe.Frames, 0, atlas); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("fairy: atlas JSON has neither \"frames\" nor \"textures\" key")
	}
	return atlas, nil
}

// --- JSON structure types ---

type jsonRect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type jsonSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

type jsonFrame struct {
	Frame            jsonRect `json:"frame"`
	Rotated          bool     `json:"rotated"`
	Trimmed          bool     `json:"trimmed"`
	SpriteSourceSize jsonRect `json:"spriteSourceSize"`
	SourceSize       jsonSize `json:"sourceSize"`
}

type jsonTexturePage struct {
	Image  string               `json:"image"`
	Frames map[string]jsonFrame `json:"frames"`
}

// parseHashFrames parses the hash format: {"name": {frame...}, ...}
func parseHashFrames(raw json.RawMessage, page int, atlas *Atlas) error {
	var frames map[string]jsonFrame
	if err := json.Unmarshal(raw, &frames); err != nil {
		return fmt.Errorf("fairy: failed to parse atlas frames: %w", err)
	}
	for name, f := range frames {
		t, err := atlas.cut(name, f, page)
		if err != nil {
			return err
		}
		atlas.regions[name] = t
	}
	return nil
}

// parseArrayFormat parses the array format: [{"image":"...", "frames":{...}}, ...]
func parseArrayFormat(raw json.RawMessage, atlas *Atlas) error {
	var textures []jsonTexturePage
	if err := json.Unmarshal(raw, &textures); err != nil {
		return fmt.Errorf("fairy: failed to parse atlas textures array: %w", err)
	}
	for i, tex := range textures {
		for name, f := range tex.Frames {
			t, err := atlas.cut(name, f, i)
			if err != nil {
				return err
			}
			atlas.regions[name] = t
		}
	}
	return nil
}

// cut creates the sub-texture for one frame. frame sizes are given in sprite
// orientation, so a rotated frame occupies h x w pixels of the page.
func (a *Atlas) cut(name string, f jsonFrame, page int) (*Texture, error) {
	if page >= len(a.Pages) || a.Pages[page] == nil {
		return nil, fmt.Errorf("fairy: atlas region %q references missing page %d", name, page)
	}
	w, h := float64(f.Frame.W), float64(f.Frame.H)
	if f.Rotated {
		w, h = h, w
	}
	t := NewSubTexture(a.Pages[page], Rect{X: float64(f.Frame.X), Y: float64(f.Frame.Y), Width: w, Height: h}, f.Rotated)
	if f.Trimmed || f.SourceSize.W != f.Frame.W || f.SourceSize.H != f.Frame.H {
		t.SetTrim(
			Vec2{float64(f.SpriteSourceSize.X), float64(f.SpriteSourceSize.Y)},
			Vec2{float64(f.SourceSize.W), float64(f.SourceSize.H)},
		)
	}
	return t, nil
}
