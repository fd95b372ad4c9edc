package camera

import (
	"math"

	"starmap/pkg/geometry"
)

// Controller owns the single authoritative Camera of a view. Input events
// only record intent; Apply folds everything received since the previous
// refresh into one camera update.
type Controller struct {
	cam         Camera
	size        geometry.Size
	defaultZoom float64

	dragging   bool
	dragAnchor geometry.Point2D

	// Pending input, consumed by Apply.
	hasDrag    bool
	dragCursor geometry.Point2D
	hasZoom    bool
	zoomDelta  float64
	zoomCursor geometry.Point2D

	coalesced int
}

// NewController creates a controller with the given default zoom.
func NewController(defaultZoom float64) *Controller {
	return &Controller{
		cam:         Camera{Zoom: ClampZoom(defaultZoom)},
		defaultZoom: ClampZoom(defaultZoom),
	}
}

// Camera returns the current camera.
func (c *Controller) Camera() Camera { return c.cam }

// Size returns the surface size the controller was last reset or resized to.
func (c *Controller) Size() geometry.Size { return c.size }

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.dragging }

// Reset re-centers the camera so that the projected bounding-box center sits
// at the surface center at the default zoom. Pending input is discarded.
func (c *Controller) Reset(bboxCenter geometry.Point2D, size geometry.Size) {
	c.size = size
	c.cam = CenterOn(bboxCenter, c.defaultZoom, size)
	c.dragging = false
	c.clearPending()
}

// Resize updates the surface size without moving the camera.
func (c *Controller) Resize(size geometry.Size) {
	c.size = size
}

// Set replaces the camera, for programmatic moves such as search re-centering.
func (c *Controller) Set(cam Camera) {
	cam.Zoom = ClampZoom(cam.Zoom)
	c.cam = cam
	if c.dragging {
		c.dragAnchor = c.dragCursor.Sub(geometry.Pt(cam.OffsetX, cam.OffsetY))
	}
	c.clearPending()
}

// BeginDrag starts a pan at the given screen position.
func (c *Controller) BeginDrag(cursor geometry.Point2D) {
	c.dragging = true
	c.dragCursor = cursor
	c.dragAnchor = cursor.Sub(geometry.Pt(c.cam.OffsetX, c.cam.OffsetY))
}

// DragTo records the latest cursor position of an active drag. It has no
// effect when no drag is in progress.
func (c *Controller) DragTo(cursor geometry.Point2D) {
	if !c.dragging {
		return
	}
	if c.hasDrag {
		c.coalesced++
	}
	c.hasDrag = true
	c.dragCursor = cursor
}

// EndDrag finishes a pan. Pending movement is still applied on the next Apply.
func (c *Controller) EndDrag() {
	c.dragging = false
}

// Zoom records a zoom request at cursor. Deltas received before the next
// Apply are summed. Non-finite deltas are dropped.
func (c *Controller) Zoom(cursor geometry.Point2D, delta float64) {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return
	}
	if c.hasZoom {
		c.coalesced++
	}
	c.hasZoom = true
	c.zoomDelta += delta
	c.zoomCursor = cursor
}

// ZoomIn zooms in one step about the surface center.
func (c *Controller) ZoomIn() { c.Zoom(c.size.Center(), zoomStep) }

// ZoomOut zooms out one step about the surface center.
func (c *Controller) ZoomOut() { c.Zoom(c.size.Center(), -zoomStep/(1+zoomStep)) }

// Pending reports whether there is input waiting for Apply.
func (c *Controller) Pending() bool { return c.hasDrag || c.hasZoom }

// Apply folds pending drag and zoom input into the camera in a single
// assignment and resets the accumulators. It reports whether the camera
// changed and how many input events were merged into this update.
func (c *Controller) Apply() (changed bool, coalesced int) {
	if !c.Pending() {
		return false, 0
	}

	next := c.cam
	if c.hasDrag {
		next.OffsetX = c.dragCursor.X - c.dragAnchor.X
		next.OffsetY = c.dragCursor.Y - c.dragAnchor.Y
	}
	if c.hasZoom {
		// A summed zoom-out of 100% or more saturates at the minimum.
		next = next.ZoomTo(c.zoomCursor, next.Zoom*math.Max(1+c.zoomDelta, 0), c.size)
		if c.dragging {
			c.dragAnchor = c.dragCursor.Sub(geometry.Pt(next.OffsetX, next.OffsetY))
		}
	}

	coalesced = c.coalesced
	changed = next != c.cam
	c.cam = next
	c.clearPending()
	return changed, coalesced
}

func (c *Controller) clearPending() {
	c.hasDrag = false
	c.hasZoom = false
	c.zoomDelta = 0
	c.coalesced = 0
}
