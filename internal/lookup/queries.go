package lookup

// defaultQueries is the fixed search list, in output order.
var defaultQueries = [...]string{
	"Le Sirenuse Positano",
	"La Sponda Positano",
	"Positano sunset balcony",
	"Riva Aquarama",
	"Capri Blue Grotto",
	"Capri lemon tree restaurant",
	"Villa Cimbrone ravello",
	"Palazzo Avino",
	"Mercedes V-Class black",
}

// DefaultQueries returns a copy of the built-in query list.
func DefaultQueries() []string {
	out := make([]string, len(defaultQueries))
	copy(out, defaultQueries[:])
	return out
}
