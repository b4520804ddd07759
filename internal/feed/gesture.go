package feed

import "github.com/campuso/crossfeed/internal/config"

// PullPhase is the pull-to-refresh state machine phase
type PullPhase int

const (
	// PullIdle: no gesture in progress
	PullIdle PullPhase = iota
	// PullTracking: touch started at the top, displacement still within
	// the dead zone
	PullTracking
	// PullPulling: past the dead zone; distance is damped and clamped
	PullPulling
	// PullCommitted: released past the threshold; holds until the
	// triggered refresh resolves
	PullCommitted
)

func (p PullPhase) String() string {
	switch p {
	case PullIdle:
		return "idle"
	case PullTracking:
		return "tracking"
	case PullPulling:
		return "pulling"
	case PullCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// pullDamping converts raw finger displacement into visual pull
// distance; pullClampFactor bounds that distance relative to the commit
// threshold so the indicator never stretches without limit.
const (
	pullDamping     = 0.45
	pullClampFactor = 1.4
)

// RefreshGate reports whether a page-1 refresh is already in flight
type RefreshGate interface {
	IsRefreshing() bool
}

// GestureController converts raw touch-movement samples into the
// pull-to-refresh state machine. It is UI-agnostic: callers translate
// their input events (touch, mouse wheel at top) into TouchStart,
// TouchMove and TouchEnd samples.
//
// A committed release reports at most once per gesture that a refresh
// should start. When a refresh is already in flight the gesture still
// enters PullCommitted for the indicator, but TouchEnd returns false so
// no second refresh is started; the in-flight one's resolution releases
// the indicator.
type GestureController struct {
	deadZone    float64
	threshold   float64
	maxDistance float64
	gate        RefreshGate

	phase    PullPhase
	startY   float64
	distance float64
}

// NewGestureController creates the state machine with thresholds from
// configuration. The gate keeps a commit during an in-flight refresh
// from starting a duplicate.
func NewGestureController(cfg *config.Gesture, gate RefreshGate) *GestureController {
	return &GestureController{
		deadZone:    cfg.DeadZone,
		threshold:   cfg.CommitThreshold,
		maxDistance: cfg.CommitThreshold * pullClampFactor,
		gate:        gate,
	}
}

// Phase returns the current machine phase
func (g *GestureController) Phase() PullPhase {
	return g.phase
}

// Distance returns the damped, clamped pull distance while pulling
func (g *GestureController) Distance() float64 {
	return g.distance
}

// TouchStart begins a gesture. Only a touch at (or within epsilon of)
// the scroll top starts tracking; elsewhere the sample is ignored.
func (g *GestureController) TouchStart(y float64, atTop bool) {
	if g.phase != PullIdle || !atTop {
		return
	}
	g.phase = PullTracking
	g.startY = y
	g.distance = 0
}

// TouchMove advances the gesture with a new vertical position
func (g *GestureController) TouchMove(y float64) {
	switch g.phase {
	case PullTracking:
		disp := y - g.startY
		if disp < 0 {
			// Upward intent: the user is scrolling, not pulling
			g.abort()
			return
		}
		if disp > g.deadZone {
			g.phase = PullPulling
			g.distance = g.damp(disp)
		}
	case PullPulling:
		disp := y - g.startY
		if disp <= 0 {
			g.abort()
			return
		}
		g.distance = g.damp(disp)
	}
}

// LeaveTop aborts an in-progress gesture when the scroll position
// leaves the top before release
func (g *GestureController) LeaveTop() {
	if g.phase == PullTracking || g.phase == PullPulling {
		g.abort()
	}
}

// TouchEnd resolves the gesture. It returns true when the release
// committed and a refresh should be started; a commit while one is
// already in flight returns false and only holds the indicator. Whether
// the release committed at all is observable through Phase.
func (g *GestureController) TouchEnd() bool {
	switch g.phase {
	case PullTracking:
		g.abort()
		return false
	case PullPulling:
		if g.distance < g.threshold {
			g.abort()
			return false
		}
		g.phase = PullCommitted
		return g.gate == nil || !g.gate.IsRefreshing()
	default:
		return false
	}
}

// RefreshResolved returns the machine to idle once the triggered (or
// concurrently running) refresh has completed
func (g *GestureController) RefreshResolved() {
	if g.phase == PullCommitted {
		g.abort()
	}
}

func (g *GestureController) abort() {
	g.phase = PullIdle
	g.startY = 0
	g.distance = 0
}

func (g *GestureController) damp(disp float64) float64 {
	d := disp * pullDamping
	if d > g.maxDistance {
		d = g.maxDistance
	}
	return d
}
