package fairy

// RenderTarget is a drawable native image: the screen, or an offscreen
// capture allocated by a Renderer.
type RenderTarget interface {
	NativeTexture
	Clear()
	ReadPixels(buf []byte)
}

// Renderer turns recorded draw items into pixels. The stage calls Render once
// per paint job, innermost first, then once for the screen list.
type Renderer interface {
	// NewRenderTarget returns a cleared target at least w x h pixels large.
	NewRenderTarget(w, h int) RenderTarget
	// ReleaseRenderTarget gives a target from NewRenderTarget back.
	ReleaseRenderTarget(rt RenderTarget)
	// Render draws items, already sorted by rendering order, onto dst.
	Render(dst RenderTarget, items []DrawItem)
	// ApplyFilter runs f from src into dst.
	ApplyFilter(f Filter, src, dst RenderTarget)
}

// itemLessOrEqual reports whether a sorts before or with b. Equal orders
// keep recording order.
func itemLessOrEqual(a, b *DrawItem) bool {
	return a.Order <= b.Order
}

// sortDrawItems sorts items in place by rendering order using buf as
// scratch, and returns buf grown to its high-water mark. Bottom-up merge
// sort: stable and allocation-free once buf is large enough.
func sortDrawItems(items, buf []DrawItem) []DrawItem {
	n := len(items)
	if n <= 1 {
		return buf
	}
	if cap(buf) < n {
		buf = make([]DrawItem, n)
	}
	buf = buf[:n]

	a, b := items, buf
	swapped := false
	for width := 1; width < n; width *= 2 {
		for lo := 0; lo < n; lo += 2 * width {
			mid := min(lo+width, n)
			hi := min(lo+2*width, n)
			mergeRun(a, b, lo, mid, hi)
		}
		a, b = b, a
		swapped = !swapped
	}
	if swapped {
		copy(items, buf)
	}
	clear(buf)
	return buf[:0]
}

// mergeRun merges two sorted runs [lo, mid) and [mid, hi) from src into dst.
func mergeRun(src, dst []DrawItem, lo, mid, hi int) {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		if itemLessOrEqual(&src[i], &src[j]) {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	k += copy(dst[k:], src[i:mid])
	copy(dst[k:], src[j:hi])
}
