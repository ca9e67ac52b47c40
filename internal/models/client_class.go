package models

// ClientClass is the kind of client an edge response was served to.
type ClientClass int

const (
	ClassIOS ClientClass = iota
	ClassAndroid
	ClassWeb
	ClassOther

	numClientClasses
)

// ClientClasses lists every class in report column order.
var ClientClasses = [numClientClasses]ClientClass{ClassIOS, ClassAndroid, ClassWeb, ClassOther}

func (c ClientClass) String() string {
	switch c {
	case ClassIOS:
		return "iOS"
	case ClassAndroid:
		return "Android"
	case ClassWeb:
		return "Web"
	default:
		return "Other"
	}
}

// MarshalText renders the class by name so JSON maps keyed by class stay readable.
func (c ClientClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ClassBytes holds one byte accumulator per client class.
type ClassBytes [numClientClasses]uint64

// Sum returns the total over all classes.
func (b ClassBytes) Sum() uint64 {
	var total uint64
	for _, v := range b {
		total += v
	}
	return total
}
