package explorer

import "math"

// Zoom limits and input scaling of the galaxy view
const (
	MinZoom          = 0.5
	MaxZoom          = 3.0
	WheelZoomSpeed   = 0.0008
	doubleClickZoom  = 2.0
	doubleClickSplit = 1.5
)

// ViewTransform is the pan/zoom state of the galaxy view
type ViewTransform struct {
	OffsetX   float64 `json:"offsetX"`
	OffsetY   float64 `json:"offsetY"`
	Zoom      float64 `json:"zoom"`
	Panning   bool    `json:"panning"`
	panStartX float64
	panStartY float64
}

// InitialView is the unpanned view at 100%
func InitialView() ViewTransform {
	return ViewTransform{Zoom: 1}
}

// ViewEvent is a discrete pointer input
type ViewEvent interface {
	apply(ViewTransform) ViewTransform
}

// DragStart begins a pan at pointer position X, Y
type DragStart struct{ X, Y float64 }

// DragMove moves the pointer while panning
type DragMove struct{ X, Y float64 }

// DragEnd ends a pan, also used when the pointer leaves the view
type DragEnd struct{}

// Wheel zooms toward the pointer by a wheel delta
type Wheel struct{ X, Y, DeltaY float64 }

// DoubleClick toggles between 100% and 200% around the pointer
type DoubleClick struct{ X, Y float64 }

// Reduce applies one input event and returns the new view
func Reduce(v ViewTransform, ev ViewEvent) ViewTransform {
	return ev.apply(v)
}

func (e DragStart) apply(v ViewTransform) ViewTransform {
	v.Panning = true
	v.panStartX = e.X - v.OffsetX
	v.panStartY = e.Y - v.OffsetY
	return v
}

func (e DragMove) apply(v ViewTransform) ViewTransform {
	if !v.Panning {
		return v
	}
	v.OffsetX = e.X - v.panStartX
	v.OffsetY = e.Y - v.panStartY
	return v
}

func (DragEnd) apply(v ViewTransform) ViewTransform {
	v.Panning = false
	return v
}

func (e Wheel) apply(v ViewTransform) ViewTransform {
	return v.zoomAt(e.X, e.Y, v.Zoom-e.DeltaY*WheelZoomSpeed)
}

func (e DoubleClick) apply(v ViewTransform) ViewTransform {
	target := 1.0
	if v.Zoom < doubleClickSplit {
		target = doubleClickZoom
	}
	return v.zoomAt(e.X, e.Y, target)
}

// zoomAt changes the zoom keeping the content under (px, py) fixed
func (v ViewTransform) zoomAt(px, py, zoom float64) ViewTransform {
	if v.Zoom == 0 {
		v.Zoom = 1
	}
	zoom = math.Min(math.Max(zoom, MinZoom), MaxZoom)
	if zoom == v.Zoom {
		return v
	}
	factor := zoom / v.Zoom
	v.OffsetX = px - (px-v.OffsetX)*factor
	v.OffsetY = py - (py-v.OffsetY)*factor
	v.Zoom = zoom
	return v
}

// ToContent maps a screen point to content coordinates under the view
func (v ViewTransform) ToContent(px, py float64) (float64, float64) {
	return (px - v.OffsetX) / v.Zoom, (py - v.OffsetY) / v.Zoom
}
