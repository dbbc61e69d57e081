package calibration

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrTooFewPoints is returned when a table would end up with fewer than two points.
	ErrTooFewPoints = errors.New("calibration needs at least two points")

	// ErrIndexOutOfRange is returned when a point index is not in the table.
	ErrIndexOutOfRange = errors.New("calibration point index out of range")

	// ErrNotAscending is returned by Validate when values or pulses are not strictly ascending.
	ErrNotAscending = errors.New("calibration points are not in ascending order")
)

// Point is a single calibration anchor. Pulse is in microseconds, Value is in
// whatever unit the application uses (degrees, unit interval, speed).
type Point struct {
	Pulse float64 `json:"pulse"`
	Value float64 `json:"value"`
}

// Table is an ordered list of calibration points plus the policy used for
// inputs outside of the table. Points must be entered in ascending value order
// for conversions to be meaningful. The zero Table has no points and limits
// neither side; use New or CreateDefault to get a usable one.
type Table struct {
	points     []Point
	limitLower bool
	limitUpper bool
}

// New returns the default table for the given servo type, limited on both sides.
func New(t Type) Table {
	tbl := Table{limitLower: true, limitUpper: true}
	tbl.CreateDefault(t)
	return tbl
}

// CreateDefault replaces the points with the default calibration of t.
func (t *Table) CreateDefault(typ Type) {
	switch typ {
	default:
		fallthrough
	case Angular:
		t.CreateThreePoint(DefaultMinPulse, DefaultMidPulse, DefaultMaxPulse,
			-DefaultValueExtent, 0, +DefaultValueExtent)
	case Linear:
		t.CreateTwoPoint(DefaultMinPulse, DefaultMaxPulse, 0, 1)
	case Continuous:
		t.CreateThreePoint(DefaultMinPulse, DefaultMidPulse, DefaultMaxPulse, -1, 0, +1)
	}
}

// CreateBlank replaces the table with n zeroed points. The table is left
// untouched if n is less than two.
func (t *Table) CreateBlank(n int) error {
	if n < 2 {
		return pkgerrors.Wrapf(ErrTooFewPoints, "requested %d", n)
	}
	t.points = make([]Point, n)
	return nil
}

// CreateTwoPoint replaces the table with a min and a max point.
func (t *Table) CreateTwoPoint(minPulse, maxPulse, minValue, maxValue float64) {
	t.points = []Point{
		{Pulse: minPulse, Value: minValue},
		{Pulse: maxPulse, Value: maxValue},
	}
}

// CreateThreePoint replaces the table with a min, a mid and a max point.
func (t *Table) CreateThreePoint(minPulse, midPulse, maxPulse, minValue, midValue, maxValue float64) {
	t.points = []Point{
		{Pulse: minPulse, Value: minValue},
		{Pulse: midPulse, Value: midValue},
		{Pulse: maxPulse, Value: maxValue},
	}
}

// CreateUniform replaces the table with n points evenly spread between the
// min and max pulse/value pairs.
func (t *Table) CreateUniform(n int, minPulse, minValue, maxPulse, maxValue float64) error {
	if err := t.CreateBlank(n); err != nil {
		return err
	}
	last := float64(n - 1)
	for i := range t.points {
		f := float64(i) / last
		t.points[i] = Point{
			Pulse: minPulse + (maxPulse-minPulse)*f,
			Value: minValue + (maxValue-minValue)*f,
		}
	}
	return nil
}

// Len returns the number of points.
func (t *Table) Len() int {
	return len(t.points)
}

// Point returns a copy of the point at index i.
func (t *Table) Point(i int) (Point, error) {
	if i < 0 || i >= len(t.points) {
		return Point{}, pkgerrors.Wrapf(ErrIndexOutOfRange, "index %d of %d", i, len(t.points))
	}
	return t.points[i], nil
}

// SetPoint overwrites the point at index i. Keeping the table in ascending
// order is up to the caller.
func (t *Table) SetPoint(i int, p Point) error {
	if i < 0 || i >= len(t.points) {
		return pkgerrors.Wrapf(ErrIndexOutOfRange, "index %d of %d", i, len(t.points))
	}
	t.points[i] = p
	return nil
}

// Points returns a copy of all points.
func (t *Table) Points() []Point {
	out := make([]Point, len(t.points))
	copy(out, t.points)
	return out
}

// SetPoints replaces the whole table with a copy of pts.
func (t *Table) SetPoints(pts []Point) error {
	if len(pts) < 2 {
		return pkgerrors.Wrapf(ErrTooFewPoints, "got %d", len(pts))
	}
	t.points = make([]Point, len(pts))
	copy(t.points, pts)
	return nil
}

// LimitTo sets whether inputs below the first point (lower) and above the last
// point (upper) are clamped to that point instead of being extrapolated.
func (t *Table) LimitTo(lower, upper bool) {
	t.limitLower = lower
	t.limitUpper = upper
}

func (t *Table) LimitLower() bool {
	return t.limitLower
}

func (t *Table) LimitUpper() bool {
	return t.limitUpper
}

// Validate checks that the table has at least two points and that both values
// and pulses are strictly ascending.
func (t *Table) Validate() error {
	if len(t.points) < 2 {
		return pkgerrors.Wrapf(ErrTooFewPoints, "got %d", len(t.points))
	}
	for i := 1; i < len(t.points); i++ {
		prev, cur := t.points[i-1], t.points[i]
		if cur.Value <= prev.Value {
			return pkgerrors.Wrapf(ErrNotAscending, "value of point %d (%g) is not above point %d (%g)", i, cur.Value, i-1, prev.Value)
		}
		if cur.Pulse <= prev.Pulse {
			return pkgerrors.Wrapf(ErrNotAscending, "pulse of point %d (%g) is not above point %d (%g)", i, cur.Pulse, i-1, prev.Pulse)
		}
	}
	return nil
}
