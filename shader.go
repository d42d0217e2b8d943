package fairy

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// itemShaderSrc implements the material keywords the plain triangle path
// cannot: rect clipping with optional soft edges, grayscale, the color
// matrix, and perspective-correct uvs (custom.x holds q, 0 for affine).
const itemShaderSrc = `//kage:unit pixels
package main

var ClipBox vec4
var Softness vec4
var Clipped float
var SoftClipped float
var Grayed float
var ColorFilter float
var Matrix [20]float

func Fragment(dst vec4, src vec2, color vec4, custom vec4) vec4 {
	p := src
	if custom.x != 0 {
		p = src / custom.x
	}
	c := imageSrc0At(p) * color

	if Grayed > 0 && c.a > 0 {
		g := dot(c.rgb/c.a, vec3(0.299, 0.587, 0.114))
		c.rgb = vec3(g) * c.a
	}
	if ColorFilter > 0 {
		s := c
		if s.a > 0 {
			s.rgb /= s.a
		}
		r := Matrix[0]*s.r + Matrix[1]*s.g + Matrix[2]*s.b + Matrix[3]*s.a + Matrix[4]
		g := Matrix[5]*s.r + Matrix[6]*s.g + Matrix[7]*s.b + Matrix[8]*s.a + Matrix[9]
		b := Matrix[10]*s.r + Matrix[11]*s.g + Matrix[12]*s.b + Matrix[13]*s.a + Matrix[14]
		a := clamp(Matrix[15]*s.r + Matrix[16]*s.g + Matrix[17]*s.b + Matrix[18]*s.a + Matrix[19], 0, 1)
		c = vec4(clamp(r, 0, 1)*a, clamp(g, 0, 1)*a, clamp(b, 0, 1)*a, a)
	}

	if Clipped > 0 {
		cp := (dst.xy - ClipBox.xy) * ClipBox.zw
		if abs(cp.x) > 1 || abs(cp.y) > 1 {
			return vec4(0)
		}
		if SoftClipped > 0 {
			fx := (1 - cp.x) * Softness.z
			if cp.x < 0 {
				fx = (1 + cp.x) * Softness.x
			}
			fy := (1 - cp.y) * Softness.w
			if cp.y < 0 {
				fy = (1 + cp.y) * Softness.y
			}
			c *= clamp(min(fx, fy), 0, 1)
		}
	}
	return c
}
`

var itemShader *ebiten.Shader

func ensureItemShader() *ebiten.Shader {
	if itemShader == nil {
		s, err := ebiten.NewShader([]byte(itemShaderSrc))
		if err != nil {
			panic("fairy: failed to compile item shader: " + err.Error())
		}
		itemShader = s
	}
	return itemShader
}

// identityMatrixF32 is uploaded when the color matrix is unused.
var identityMatrixF32 = [20]float32{
	1, 0, 0, 0, 0,
	0, 1, 0, 0, 0,
	0, 0, 1, 0, 0,
	0, 0, 0, 1, 0,
}

// shaderUniforms holds the uniform values of one batch. The map is reused
// across flushes.
type shaderUniforms struct {
	values   map[string]any
	clipBox  [4]float32
	softness [4]float32
	matrix   [20]float32
}

func (u *shaderUniforms) set(clip ClipInfo, grayed bool, cm *[20]float64) map[string]any {
	if u.values == nil {
		u.values = make(map[string]any, 8)
	}
	u.clipBox = [4]float32{float32(clip.Box.CX), float32(clip.Box.CY), float32(clip.Box.InvHW), float32(clip.Box.InvHH)}
	for i, s := range clip.Softness {
		u.softness[i] = float32(s)
	}
	if cm != nil {
		for i, v := range cm {
			u.matrix[i] = float32(v)
		}
	} else {
		u.matrix = identityMatrixF32
	}
	u.values["ClipBox"] = u.clipBox[:]
	u.values["Softness"] = u.softness[:]
	u.values["Clipped"] = boolUniform(clip.RectClipped)
	u.values["SoftClipped"] = boolUniform(clip.RectClipped && clip.Soft)
	u.values["Grayed"] = boolUniform(grayed)
	u.values["ColorFilter"] = boolUniform(cm != nil)
	u.values["Matrix"] = u.matrix[:]
	return u.values
}

func boolUniform(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
