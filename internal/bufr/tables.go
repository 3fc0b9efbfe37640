package bufr

// FXY is a BUFR descriptor triplet: F selects the class (0 = element,
// 1 = replication, 2 = operator, 3 = sequence), X the class, Y the
// element/sequence within the class.
type FXY struct {
	F, X, Y uint8
}

// ParseFXY decodes the 16-bit wire representation of a descriptor:
// BUFR packs F in the top 2 bits, X in the next 6, Y in the low 8.
func ParseFXY(raw uint16) FXY {
	return FXY{
		F: uint8(raw >> 14),
		X: uint8((raw >> 8) & 0x3F),
		Y: uint8(raw & 0xFF),
	}
}

// TableBEntry describes how to decode one Table-B (element) descriptor:
// bit width, decimal scale, and reference value, per the standard
// formula value = (raw + reference) * 10^-scale. IsString elements are
// read as raw bytes (CCITT IA5) instead of a scaled number.
type TableBEntry struct {
	Width     int
	Scale     int
	Reference int64
	IsString  bool
}

// TableB holds the WMO Table-B entries this decoder needs to resolve
// the descriptors synoptic fusion scans for (spec §4.7's descriptor
// table) plus the date/time elements referenced by the standard
// sequences in TableD. These are internationally published WMO
// constants, not upstream-specific, with one local change: 0-12-101
// carries a -27315 reference so temperature decodes directly in °C
// instead of K.
var TableB = map[FXY]TableBEntry{
	{0, 1, 128}: {Width: 128, IsString: true}, // WIGOS local identifier
	{0, 4, 1}:   {Width: 12},                  // year
	{0, 4, 2}:   {Width: 4},                   // month
	{0, 4, 3}:   {Width: 6},                    // day
	{0, 4, 4}:   {Width: 5},                    // hour
	{0, 4, 5}:   {Width: 6},                    // minute
	{0, 4, 25}:  {Width: 12, Reference: -2048}, // time period/displacement, minutes
	{0, 7, 32}:  {Width: 16, Scale: 1, Reference: -40},  // sensor height above ground, m
	{0, 11, 1}:  {Width: 9},                             // wind direction, degrees true
	{0, 11, 2}:  {Width: 12, Scale: 1},                  // wind speed, m/s
	{0, 11, 41}: {Width: 12, Scale: 1},                  // max wind gust speed, m/s
	{0, 12, 101}: {Width: 16, Scale: 2, Reference: -27315}, // temperature, K
	{0, 13, 3}:  {Width: 7},                             // relative humidity, %
	{0, 13, 9}:  {Width: 7},                             // relative humidity (alt), %
	{0, 13, 11}: {Width: 14, Scale: 1, Reference: -1},   // total precipitation, kg/m^2
	{0, 20, 3}:  {Width: 9},                             // present weather (synop)
	{0, 20, 10}: {Width: 7},                             // cloud cover, %
	{0, 31, 1}:  {Width: 8},                             // delayed descriptor replication factor
	{0, 31, 2}:  {Width: 16},                            // extended delayed descriptor replication factor
}

// TableD holds the Table-D (sequence) expansions this decoder needs:
// the standard date and time composite descriptors.
var TableD = map[FXY][]FXY{
	{3, 1, 11}: {{0, 4, 1}, {0, 4, 2}, {0, 4, 3}}, // YYMMDD
	{3, 1, 12}: {{0, 4, 4}, {0, 4, 5}},            // HHMM
}
