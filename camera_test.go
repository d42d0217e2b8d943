package fairy

import (
	"math"
	"testing"

	"github.com/tanema/gween/ease"
)

const epsilon = 1e-9

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestCameraDefaultsIdentityOnViewport(t *testing.T) {
	cam := NewCamera(Rect{Width: 800, Height: 600})
	for _, p := range []Vec2{{0, 0}, {400, 300}, {799, 12}} {
		s := cam.WorldToScreen(p)
		if !approxEqual(s.X, p.X, epsilon) || !approxEqual(s.Y, p.Y, epsilon) {
			t.Errorf("WorldToScreen(%v) = %v, want identity", p, s)
		}
	}
}

func TestCameraCentersOnPosition(t *testing.T) {
	cam := NewCamera(Rect{Width: 800, Height: 600})
	cam.X, cam.Y = 100, 50
	s := cam.WorldToScreen(Vec2{100, 50})
	if !approxEqual(s.X, 400, epsilon) || !approxEqual(s.Y, 300, epsilon) {
		t.Errorf("WorldToScreen = %v, want (400,300)", s)
	}
}

func TestCameraZoom(t *testing.T) {
	cam := NewCamera(Rect{Width: 800, Height: 600})
	cam.Zoom = 2
	d := cam.WorldToScreen(Vec2{401, 300}).X - cam.WorldToScreen(Vec2{400, 300}).X
	if !approxEqual(d, 2, epsilon) {
		t.Errorf("one world unit = %f pixels at zoom 2, want 2", d)
	}
}

func TestCameraRotation90(t *testing.T) {
	cam := NewCamera(Rect{Width: 800, Height: 600})
	cam.X, cam.Y = 0, 0
	cam.Rotation = math.Pi / 2
	s := cam.WorldToScreen(Vec2{1, 0})
	if !approxEqual(s.X, 400, 1e-6) || !approxEqual(s.Y, 299, 1e-6) {
		t.Errorf("WorldToScreen(1,0) = %v, want (400,299)", s)
	}
}

func TestCameraScreenToWorldRoundTrip(t *testing.T) {
	cam := NewCamera(Rect{Width: 640, Height: 480})
	cam.X, cam.Y, cam.Zoom, cam.Rotation = 37, -12, 1.5, 0.4
	p := Vec2{123, 456}
	back := cam.WorldToScreen(cam.ScreenToWorld(p))
	if !approxEqual(back.X, p.X, 1e-6) || !approxEqual(back.Y, p.Y, 1e-6) {
		t.Errorf("round trip = %v, want %v", back, p)
	}
}

func TestCameraScreenRayHitsNode(t *testing.T) {
	cam := NewCamera(Rect{Width: 800, Height: 600})
	cam.X, cam.Y = 500, 300
	n := NewLeaf("n")
	n.SetPosition(200, 0)
	o, d := cam.ScreenRay(Vec2{400, 300})
	local := n.WorldToLocal(o, d)
	if !approxEqual(local.X, 300, 1e-6) || !approxEqual(local.Y, 300, 1e-6) {
		t.Errorf("local = %v, want (300,300)", local)
	}
}

func TestCameraScrollTo(t *testing.T) {
	cam := NewCamera(Rect{Width: 800, Height: 600})
	cam.ScrollTo(1000, 700, 1, ease.Linear)
	cam.update(0.5)
	if !approxEqual(cam.X, 700, 1e-3) || !approxEqual(cam.Y, 500, 1e-3) {
		t.Errorf("halfway = (%f,%f), want (700,500)", cam.X, cam.Y)
	}
	cam.update(0.6)
	if cam.Scrolling() {
		t.Error("still scrolling after duration elapsed")
	}
	if !approxEqual(cam.X, 1000, 1e-3) || !approxEqual(cam.Y, 700, 1e-3) {
		t.Errorf("end = (%f,%f), want (1000,700)", cam.X, cam.Y)
	}
}

func TestCameraClampToBounds(t *testing.T) {
	cam := NewCamera(Rect{Width: 100, Height: 100})
	cam.SetBounds(Rect{Width: 500, Height: 500})
	cam.X, cam.Y = -100, 900
	cam.update(0)
	if cam.X != 50 || cam.Y != 450 {
		t.Errorf("clamped = (%f,%f), want (50,450)", cam.X, cam.Y)
	}
}

func TestCameraFollow(t *testing.T) {
	cam := NewCamera(Rect{Width: 100, Height: 100})
	n := NewLeaf("target")
	n.SetPosition(300, 200)
	cam.Follow(n, Vec2{10, 0}, 1)
	cam.update(0)
	if cam.X != 310 || cam.Y != 200 {
		t.Errorf("follow = (%f,%f), want (310,200)", cam.X, cam.Y)
	}
}
