package geo

import "math"

// EarthRadiusMeters is the sphere radius used for station distances.
// Existing acceptability radii were calibrated against 6363 km, so it must
// not be replaced by the mean Earth radius.
const EarthRadiusMeters = 6_363_000

const degreesToRadians = math.Pi / 180

// Encoding says how a Position's numbers are packed.
type Encoding int

const (
	// EncodingDecimalMinutes is the DDMM.mmm packing used by station tables.
	EncodingDecimalMinutes Encoding = iota
	// EncodingDecimal marks values that are already decimal degrees.
	EncodingDecimal
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingDecimal:
		return "decimal"
	default:
		return "decimal-minutes"
	}
}

// Position is a latitude/longitude pair in the given encoding.
type Position struct {
	Lat      float64
	Lon      float64
	Encoding Encoding
}

// EncodedPosition builds a DDMM.mmm position.
func EncodedPosition(lat, lon float64) Position {
	return Position{Lat: lat, Lon: lon, Encoding: EncodingDecimalMinutes}
}

// DecimalPosition builds a decimal-degree position.
func DecimalPosition(lat, lon float64) Position {
	return Position{Lat: lat, Lon: lon, Encoding: EncodingDecimal}
}

// Decimal returns the position in decimal degrees.
func (p Position) Decimal() (lat, lon float64) {
	if p.Encoding == EncodingDecimal {
		return p.Lat, p.Lon
	}
	return ToDecimalDegrees(p.Lat), ToDecimalDegrees(p.Lon)
}

// DistanceMeters returns the great-circle distance between a and b in whole
// meters, using the spherical law of cosines on colatitudes.
// Identical decimal positions are exactly 0 apart.
func DistanceMeters(a, b Position) int {
	lat1, lon1 := a.Decimal()
	lat2, lon2 := b.Decimal()
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	phi1 := (90.0 - lat1) * degreesToRadians
	phi2 := (90.0 - lat2) * degreesToRadians
	theta1 := lon1 * degreesToRadians
	theta2 := lon2 * degreesToRadians

	cos := math.Sin(phi1)*math.Sin(phi2)*math.Cos(theta1-theta2) + math.Cos(phi1)*math.Cos(phi2)
	// Rounding can push nearly coincident points just past 1.
	cos = math.Max(-1, math.Min(1, cos))

	return int(math.Round(math.Acos(cos) * EarthRadiusMeters))
}

// DistanceEncoded is DistanceMeters for two DDMM.mmm encoded pairs.
func DistanceEncoded(lat1, lon1, lat2, lon2 float64) int {
	return DistanceMeters(EncodedPosition(lat1, lon1), EncodedPosition(lat2, lon2))
}
