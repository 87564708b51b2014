package gridquery

const (
	// MaxColumns bounds the column list of a request accepted over HTTP
	MaxColumns = 256

	tokenVersion = 1
)
