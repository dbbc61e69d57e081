package calibration

const (
	LowerHardLimit = 500.0        // The minimum microsecond pulse to send
	UpperHardLimit = 2500.0       // The maximum microsecond pulse to send
	ServoPeriod    = 1000000 / 50 // All servos should run at 50Hz, in microseconds
)

// Converter translates between values, pulses and hardware levels using the
// calibration table it holds.
type Converter struct {
	table Table
}

// NewConverter returns a Converter holding the default table of t.
func NewConverter(t Type) Converter {
	return Converter{table: New(t)}
}

// Calibration exposes the table for in-place modification.
func (c *Converter) Calibration() *Table {
	return &c.table
}

func (c *Converter) MinValue() float64 {
	pts := c.table.points
	if len(pts) < 2 {
		return 0
	}
	return pts[0].Value
}

// MidValue is halfway between the first and last values, which need not be a
// stored point.
func (c *Converter) MidValue() float64 {
	pts := c.table.points
	if len(pts) < 2 {
		return 0
	}
	return (pts[0].Value + pts[len(pts)-1].Value) / 2
}

func (c *Converter) MaxValue() float64 {
	pts := c.table.points
	if len(pts) < 2 {
		return 0
	}
	return pts[len(pts)-1].Value
}

// ValueToPulse maps value onto the pulse axis.
func (c *Converter) ValueToPulse(value float64) float64 {
	pts := c.table.points
	if len(pts) < 2 {
		return 0
	}
	last := len(pts) - 1

	switch {
	case value < pts[0].Value:
		if c.table.limitLower {
			return pts[0].Pulse
		}
		return MapFloat(value, pts[0].Value, pts[1].Value, pts[0].Pulse, pts[1].Pulse)
	case value > pts[last].Value:
		if c.table.limitUpper {
			return pts[last].Pulse
		}
		return MapFloat(value, pts[last-1].Value, pts[last].Value, pts[last-1].Pulse, pts[last].Pulse)
	}

	for i := 0; i < last; i++ {
		if value <= pts[i+1].Value {
			return MapFloat(value, pts[i].Value, pts[i+1].Value, pts[i].Pulse, pts[i+1].Pulse)
		}
	}
	return 0
}

// ValueFromPulse maps pulse onto the value axis.
func (c *Converter) ValueFromPulse(pulse float64) float64 {
	pts := c.table.points
	if len(pts) < 2 {
		return 0
	}
	last := len(pts) - 1

	switch {
	case pulse < pts[0].Pulse:
		if c.table.limitLower {
			return pts[0].Value
		}
		return MapFloat(pulse, pts[0].Pulse, pts[1].Pulse, pts[0].Value, pts[1].Value)
	case pulse > pts[last].Pulse:
		if c.table.limitUpper {
			return pts[last].Value
		}
		return MapFloat(pulse, pts[last-1].Pulse, pts[last].Pulse, pts[last-1].Value, pts[last].Value)
	}

	for i := 0; i < last; i++ {
		if pulse <= pts[i+1].Pulse {
			return MapFloat(pulse, pts[i].Pulse, pts[i+1].Pulse, pts[i].Value, pts[i+1].Value)
		}
	}
	return 0
}

// PulseToLevel converts a pulse into a duty count out of resolution. The pulse
// is always held within the hard limits to protect the servo, whatever the
// calibration says.
func PulseToLevel(pulse float64, resolution uint32) uint32 {
	pulse = min(max(pulse, LowerHardLimit), UpperHardLimit)
	return uint32((pulse * float64(resolution)) / ServoPeriod)
}

// MapFloat linearly rescales in from [inMin, inMax] to [outMin, outMax].
// inMin must differ from inMax.
func MapFloat(in, inMin, inMax, outMin, outMax float64) float64 {
	return ((in-inMin)*(outMax-outMin))/(inMax-inMin) + outMin
}
