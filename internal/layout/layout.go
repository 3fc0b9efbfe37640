// Package layout computes the visual plan (C10): section labels along
// a two-scale time axis, a smoothed temperature path, a rain fill, a
// probability-of-precipitation gradient, horizontal temperature/rain
// gridlines, and a radar intensity gradient. It emits plain geometry
// and colour data for an external renderer — no 2D graphics library
// appears anywhere in the examples pack, so this stays on stdlib
// math/time, matching the spec's own non-goal that rendering is out
// of scope (see DESIGN.md).
package layout

import (
	"math"
	"sort"
	"time"

	"github.com/dwdfusion/dwdfusion/internal/weather"
)

// Rect is the drawing area the plan is computed against.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) top() float64    { return r.Y }
func (r Rect) bottom() float64 { return r.Y + r.Height }

// Point is one 2D coordinate in the renderer's space.
type Point struct{ X, Y float64 }

func (p Point) sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }
func (p Point) add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }

// PathOp tags one drawing instruction in a Path.
type PathOp int

const (
	OpMoveTo PathOp = iota
	OpCubicTo
	OpLineTo
)

// PathSegment is one instruction: MoveTo/LineTo use only End; CubicTo
// carries both Bezier control points.
type PathSegment struct {
	Op         PathOp
	Control1   Point
	Control2   Point
	End        Point
}

// Path is an ordered list of drawing instructions, renderer-agnostic.
type Path []PathSegment

// Color is a straight (non-premultiplied) ARGB colour, matching the
// teacher corpus's absence of any color-management library — plain
// byte components are sufficient for gradient stop data.
type Color struct{ A, R, G, B uint8 }

// GradientStop pins a Color at a normalised (or axis-relative)
// position along a gradient's axis.
type GradientStop struct {
	Position float64
	Color    Color
}

// Gradient is a linear gradient between two points, built from stops
// ordered ascending by Position.
type Gradient struct {
	From, To Point
	Stops    []GradientStop
}

// SectionLabel anchors one axis label: its x position, display text,
// and the Datapoint whose condition selects its icon.
type SectionLabel struct {
	X        float64
	Instant  time.Time
	Text     string
	Source   weather.Datapoint
}

// SectionPlan is the always-present top-level result: axis labels plus
// the near-region base and scale the renderer needs to place a "now"
// marker.
type SectionPlan struct {
	Sections         []SectionLabel
	NearBaseTS       time.Time
	NearMinuteScale  float64 // x-pixels per minute in the near region
}

// TemperaturePlan is the smoothed temperature curve and its vertical
// colour ramp.
type TemperaturePlan struct {
	Path     Path
	Gradient Gradient
}

// RainPlan is the smoothed filled precipitation area and its
// per-segment horizontal colour ramp.
type RainPlan struct {
	Path     Path
	Gradient Gradient
}

// PPrecipitationPlan draws a probability-of-precipitation ramp along
// the rectangle's top edge.
type PPrecipitationPlan struct {
	Start, End Point
	Gradient   Gradient
}

// HorizontalLine is one gridline: its y position, the integer
// temperature it denotes, and (once a RainPlan exists) the rain depth
// in millimetres at that same y on the secondary scale.
type HorizontalLine struct {
	Y       float64
	TempC   int
	RainMM  *float64
}

// RadarPlan is the radar time-span gradient plus an optional upper
// label marking the first rain/no-rain transition.
type RadarPlan struct {
	Gradient     Gradient
	UpperLabelX  *float64
	StartLabel   time.Time
	EndLabel     time.Time
}

// Plan is the complete output of one layout pass.
type Plan struct {
	Section        SectionPlan
	Temperature    *TemperaturePlan
	Rain           *RainPlan
	PPrecipitation *PPrecipitationPlan
	Lines          []HorizontalLine
	Radar          *RadarPlan
}

const (
	nearHoursBefore = 8
	nearHoursAfter  = 12
	farHoursAfter   = 96
)

// axis computes the two-region time-to-x mapping described in spec
// §4.10: near region is the first two thirds of the width, spanning
// truncate_to_hour(now)-8h .. +12h; far region is the remaining third,
// spanning +12h .. +96h.
type axis struct {
	rect                       Rect
	nearStart, nearEnd, farEnd time.Time
	nearWidth, farWidth        float64
}

func newAxis(rect Rect, now time.Time) axis {
	truncated := now.Truncate(time.Hour)
	return axis{
		rect:      rect,
		nearStart: truncated.Add(-nearHoursBefore * time.Hour),
		nearEnd:   truncated.Add(nearHoursAfter * time.Hour),
		farEnd:    truncated.Add(farHoursAfter * time.Hour),
		nearWidth: rect.Width * 2 / 3,
		farWidth:  rect.Width / 3,
	}
}

func (a axis) toX(t time.Time) float64 {
	if !t.After(a.nearEnd) {
		minutes := t.Sub(a.nearStart).Minutes()
		return a.rect.X + (minutes/(nearHoursBefore+nearHoursAfter)/60)*a.nearWidth
	}
	minutes := t.Sub(a.nearEnd).Minutes()
	farBase := a.rect.X + a.nearWidth
	return farBase + (minutes/(farHoursAfter-nearHoursAfter)/60)*a.farWidth
}

func (a axis) minuteScale() float64 {
	return a.nearWidth / ((nearHoursBefore + nearHoursAfter) * 60)
}

// Build computes the full Plan for the fused series within the display
// window, the radar series, and the current instant.
func Build(rect Rect, merged []weather.Datapoint, radarSeries []weather.RadarReading, now time.Time) Plan {
	ax := newAxis(rect, now)

	plan := Plan{
		Section: buildSections(ax, merged),
	}

	windowed := inWindow(merged, ax.nearStart, ax.farEnd)

	plan.Temperature = buildTemperature(ax, rect, windowed)
	rainPlan, rainScale, haveRain := buildRain(ax, rect, windowed)
	if haveRain {
		plan.Rain = rainPlan
	}
	plan.PPrecipitation = buildPPrecipitation(ax, rect, windowed)
	plan.Lines = buildHorizontalLines(rect, windowed, rainScale, haveRain)
	plan.Radar = buildRadar(rect, radarSeries)

	return plan
}

func inWindow(points []weather.Datapoint, start, end time.Time) []weather.Datapoint {
	out := make([]weather.Datapoint, 0, len(points))
	for _, p := range points {
		if !p.InstantUTC.Before(start) && !p.InstantUTC.After(end) {
			out = append(out, p)
		}
	}
	return out
}

// buildSections implements the near-region hourly labels and the
// far-region weekday labels of spec §4.10.
func buildSections(ax axis, merged []weather.Datapoint) SectionPlan {
	near := inWindow(merged, ax.nearStart, ax.nearEnd)
	far := inWindow(merged, ax.nearEnd, ax.farEnd)

	var sections []SectionLabel

	n := len(near)
	skippedFirstHourly := true
	for k := 2; k < n; k += 2 {
		idx := n - 1 - k
		if idx < 0 {
			break
		}
		p := near[idx]
		if skippedFirstHourly && n >= 1 && near[n-1].InstantLocal.Day() != near[0].InstantLocal.Day() {
			// The rightmost hourly label falls on the day the far
			// region already opens with a weekday section; drop it.
			skippedFirstHourly = false
			continue
		}
		skippedFirstHourly = false
		sections = append(sections, SectionLabel{
			X:       ax.toX(p.InstantUTC),
			Instant: p.InstantUTC,
			Text:    p.InstantLocal.Format("15"),
			Source:  p,
		})
	}

	if len(far) > 0 {
		runningDay := far[0].InstantLocal.Day()
		if n > 0 {
			runningDay = near[n-1].InstantLocal.Day()
		}
		var pending *SectionLabel
		for _, p := range far {
			day := p.InstantLocal.Day()
			if day != runningDay {
				if pending != nil {
					sections = append(sections, *pending)
				}
				lbl := SectionLabel{
					X:       ax.toX(p.InstantUTC),
					Instant: p.InstantUTC,
					Text:    p.InstantLocal.Format("Mon"),
					Source:  p,
				}
				pending = &lbl
				runningDay = day
				continue
			}
			if pending != nil && p.InstantLocal.Hour() >= 14 && !p.Condition.IsNone() {
				pending.Source = p
				sections = append(sections, *pending)
				pending = nil
			}
		}
		if pending != nil {
			sections = append(sections, *pending)
		}
	}

	sort.Slice(sections, func(i, j int) bool { return sections[i].Instant.Before(sections[j].Instant) })

	return SectionPlan{
		Sections:        sections,
		NearBaseTS:      ax.nearStart,
		NearMinuteScale: ax.minuteScale(),
	}
}

// temperature colour ramp, ported verbatim from the original's
// t_colors module (gradients.rs): fixed RGB stops across a -20..40°C
// domain, independent of the plotted series' own min/max.
var tempStops = buildTempStops()

func buildTempStops() []GradientStop {
	const minT, maxT = -20.0, 40.0
	posOf := func(v float64) float64 { return (v - minT) / (maxT - minT) }
	type rgb struct{ r, g, b uint8 }
	entries := []struct {
		v   float64
		col rgb
	}{
		{-20, rgb{227, 14, 206}},
		{-10, rgb{128, 18, 230}},
		{-5, rgb{18, 138, 230}},
		{0, rgb{18, 230, 230}},
		{5, rgb{85, 204, 0}},
		{10, rgb{255, 247, 0}},
		{20, rgb{255, 149, 0}},
		{30, rgb{247, 15, 15}},
		{40, rgb{247, 15, 92}},
	}
	stops := make([]GradientStop, len(entries))
	for i, e := range entries {
		stops[i] = GradientStop{Position: posOf(e.v), Color: Color{A: 255, R: e.col.r, G: e.col.g, B: e.col.b}}
	}
	return stops
}

func buildTemperature(ax axis, rect Rect, points []weather.Datapoint) *TemperaturePlan {
	type sample struct {
		t time.Time
		v float64
	}
	var samples []sample
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		if p.Temperature == nil {
			continue
		}
		samples = append(samples, sample{p.InstantUTC, *p.Temperature})
		if *p.Temperature < minV {
			minV = *p.Temperature
		}
		if *p.Temperature > maxV {
			maxV = *p.Temperature
		}
	}
	if len(samples) < 2 {
		return nil
	}

	minSnap := math.Floor(minV/5)*5 - 5
	maxSnap := math.Ceil(maxV/5)*5 + 5
	yOf := func(v float64) float64 {
		frac := (v - minSnap) / (maxSnap - minSnap)
		return rect.bottom() - frac*rect.Height
	}

	pts := make([]Point, len(samples))
	for i, s := range samples {
		pts[i] = Point{X: ax.toX(s.t), Y: yOf(s.v)}
	}

	return &TemperaturePlan{
		Path: interpolatedPath(pts),
		Gradient: Gradient{
			From:  Point{X: rect.X, Y: rect.bottom()},
			To:    Point{X: rect.X, Y: rect.top()},
			Stops: tempStops,
		},
	}
}

// interpolatedPath builds the Catmull-Rom-style smoothed cubic path of
// spec §4.10 / lines.rs: for every (prev, cur, next) triple, cubic
// control handles are offset along x by (next.x-prev.x)/8 and along y
// proportionally; the path collapses to the endpoint at each end.
func interpolatedPath(points []Point) Path {
	if len(points) == 0 {
		return nil
	}
	path := Path{{Op: OpMoveTo, End: points[0]}}
	if len(points) == 1 {
		return path
	}

	pending := points[0]
	for i := 0; i+2 < len(points); i++ {
		prev, cur, next := points[i], points[i+1], points[i+2]
		xDist := next.X - prev.X
		handleRange := xDist / 8
		var yOff float64
		if xDist != 0 {
			yOff = (next.Y - prev.Y) * handleRange / xDist
		}
		grad := Point{X: handleRange, Y: yOff}
		path = append(path, PathSegment{Op: OpCubicTo, Control1: pending, Control2: cur.sub(grad), End: cur})
		pending = cur.add(grad)
	}

	last := points[len(points)-1]
	path = append(path, PathSegment{Op: OpCubicTo, Control1: pending, Control2: last, End: last})
	return path
}

func grayRainColor(v float64) Color {
	switch {
	case v <= 0:
		return Color{A: 255, R: 0, G: 0, B: 0}
	case v <= 1.5:
		f := v / 1.5
		l := uint8(255 * f)
		return Color{A: 255, R: l, G: l, B: l}
	default:
		return Color{A: 255, R: 255, G: 255, B: 255}
	}
}

func buildRain(ax axis, rect Rect, points []weather.Datapoint) (*RainPlan, float64, bool) {
	type sample struct {
		t time.Time
		v float64
	}
	var samples []sample
	maxV := 0.0
	for _, p := range points {
		if p.Precipitation == nil {
			continue
		}
		v := *p.Precipitation
		samples = append(samples, sample{p.InstantUTC, v})
		if v > maxV {
			maxV = v
		}
	}
	if maxV == 0 || len(samples) < 2 {
		return nil, 0, false
	}

	scale := math.Max(maxV, 3.0) + 0.5
	yOf := func(v float64) float64 {
		frac := v / scale
		return rect.bottom() - frac*rect.Height
	}

	top := make([]Point, len(samples))
	stops := make([]GradientStop, len(samples))
	for i, s := range samples {
		x := ax.toX(s.t)
		top[i] = Point{X: x, Y: yOf(s.v)}
		stops[i] = GradientStop{Position: x, Color: grayRainColor(s.v)}
	}

	// Smoothed filled area: interior control points at each segment
	// midpoint, closing back along the rectangle's bottom edge.
	path := Path{{Op: OpMoveTo, End: Point{X: top[0].X, Y: rect.bottom()}}}
	path = append(path, PathSegment{Op: OpLineTo, End: top[0]})
	for i := 0; i+1 < len(top); i++ {
		mid := Point{X: (top[i].X + top[i+1].X) / 2, Y: (top[i].Y + top[i+1].Y) / 2}
		path = append(path, PathSegment{Op: OpCubicTo, Control1: top[i], Control2: mid, End: mid})
	}
	path = append(path, PathSegment{Op: OpLineTo, End: top[len(top)-1]})
	path = append(path, PathSegment{Op: OpLineTo, End: Point{X: top[len(top)-1].X, Y: rect.bottom()}})
	path = append(path, PathSegment{Op: OpLineTo, End: Point{X: top[0].X, Y: rect.bottom()}})

	return &RainPlan{
		Path: path,
		Gradient: Gradient{
			From:  Point{X: top[0].X, Y: 0},
			To:    Point{X: top[len(top)-1].X, Y: 0},
			Stops: stops,
		},
	}, scale, true
}

// pprecipColor renders probability of precipitation (0..100) as an
// alpha-ramped white, ported from original_source/src/graph.rs's
// create_p_precipitation_plan: Color::from_argb((value*2.5) as u8,
// 255, 255, 255).
func pprecipColor(p float64) Color {
	a := uint8(math.Round(math.Min(math.Max(p*2.5, 0), 255)))
	return Color{A: a, R: 255, G: 255, B: 255}
}

func buildPPrecipitation(ax axis, rect Rect, points []weather.Datapoint) *PPrecipitationPlan {
	var first, last *weather.Datapoint
	var firstV, lastV float64
	anyNonZero := false
	for i := range points {
		if points[i].PPrecipitation == nil {
			continue
		}
		if *points[i].PPrecipitation != 0 {
			anyNonZero = true
		}
		if first == nil {
			first = &points[i]
			firstV = *points[i].PPrecipitation
		}
		last = &points[i]
		lastV = *points[i].PPrecipitation
	}
	if first == nil || last == nil || first == last || !anyNonZero {
		return nil
	}

	start := Point{X: ax.toX(first.InstantUTC), Y: rect.top()}
	end := Point{X: ax.toX(last.InstantUTC), Y: rect.top()}

	return &PPrecipitationPlan{
		Start: start,
		End:   end,
		Gradient: Gradient{
			From: start,
			To:   end,
			Stops: []GradientStop{
				{Position: 0, Color: pprecipColor(firstV)},
				{Position: 1, Color: pprecipColor(lastV)},
			},
		},
	}
}

func buildHorizontalLines(rect Rect, points []weather.Datapoint, rainScale float64, haveRain bool) []HorizontalLine {
	minV, maxV := math.Inf(1), math.Inf(-1)
	any := false
	for _, p := range points {
		if p.Temperature == nil {
			continue
		}
		any = true
		if *p.Temperature < minV {
			minV = *p.Temperature
		}
		if *p.Temperature > maxV {
			maxV = *p.Temperature
		}
	}
	if !any {
		return nil
	}
	minSnap := math.Floor(minV/5)*5 - 5
	maxSnap := math.Ceil(maxV/5)*5 + 5

	// Lines are emitted strictly between the snapped bounds, excluding
	// the grid edges themselves, matching original_source/src/graph.rs's
	// create_temperature_path (`let mut t = min + 5.0; while t < max`).
	var lines []HorizontalLine
	for t := minSnap + 5; t < maxSnap; t += 5 {
		frac := (t - minSnap) / (maxSnap - minSnap)
		y := rect.bottom() - frac*rect.Height
		line := HorizontalLine{Y: y, TempC: int(math.Round(t))}
		if haveRain {
			rainFrac := (rect.bottom() - y) / rect.Height
			mm := rainFrac * rainScale
			line.RainMM = &mm
		}
		lines = append(lines, line)
	}
	return lines
}

// radar colour ramp, ported from r_colors.radar_color_for in the
// original source: interpolated bands at 0.5/1.5/4.5 mm boundaries.
func radarColor(v float64) Color {
	lerp := func(a, b Color, f float64) Color {
		m := func(x, y uint8) uint8 { return uint8(float64(x)*(1-f) + float64(y)*f) }
		return Color{A: m(a.A, b.A), R: m(a.R, b.R), G: m(a.G, b.G), B: m(a.B, b.B)}
	}
	c05 := Color{A: 255, R: 0x00, G: 0x92, B: 0x91}
	c15 := Color{A: 255, R: 0x40, G: 0xc7, B: 0x60}
	c45 := Color{A: 255, R: 0xdc, G: 0xd3, B: 0x18}
	cRest := Color{A: 255, R: 0x9b, G: 0x0f, B: 0x6d}
	switch {
	case v == 0:
		return Color{A: 0, R: 0x28, G: 0x10, B: 0x9f}
	case v <= 0.5:
		return lerp(Color{A: 10, R: 0x28, G: 0x10, B: 0x9f}, c05, v*2)
	case v <= 1.5:
		return lerp(c05, c15, v-0.5)
	case v <= 4.5:
		return lerp(c15, c45, (v-1.5)/3)
	default:
		return cRest
	}
}

func buildRadar(rect Rect, readings []weather.RadarReading) *RadarPlan {
	if len(readings) < 2 {
		return nil
	}
	anyNonZero := false
	for _, r := range readings {
		if r.Value > 0 {
			anyNonZero = true
			break
		}
	}
	if !anyNonZero {
		return nil
	}

	start := readings[0].InstantUTC
	end := readings[len(readings)-1].InstantUTC
	span := end.Sub(start).Minutes()
	toX := func(t time.Time) float64 {
		if span == 0 {
			return rect.X
		}
		return rect.X + (t.Sub(start).Minutes()/span)*rect.Width
	}

	stops := make([]GradientStop, len(readings))
	for i, r := range readings {
		stops[i] = GradientStop{Position: toX(r.InstantUTC), Color: radarColor(r.Value)}
	}

	// Ported verbatim from original_source/src/graph.rs's
	// create_radar_plan: "is_raining" is keyed off the first (oldest)
	// reading in the ascending series, not the last.
	currentlyRaining := readings[0].Value > 0
	var upperLabelX *float64
	for i := range readings {
		if currentlyRaining && readings[i].Value == 0 {
			x := toX(readings[i].InstantUTC)
			upperLabelX = &x
			break
		}
		if !currentlyRaining && readings[i].Value > 0 {
			x := toX(readings[i].InstantUTC)
			upperLabelX = &x
			break
		}
	}

	return &RadarPlan{
		Gradient: Gradient{
			From:  Point{X: rect.X, Y: 0},
			To:    Point{X: rect.X + rect.Width, Y: 0},
			Stops: stops,
		},
		UpperLabelX: upperLabelX,
		StartLabel:  start,
		EndLabel:    end,
	}
}
