package meta

import "github.com/mewkiz/flac/internal/bits"

// Application contains third party application specific data.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_application
type Application struct {
	// Registered application ID.
	//
	// ref: https://www.xiph.org/flac/id.html
	ID uint32
	// Application data.
	Data []byte
}

// parseApplication reads and parses the body of an Application metadata
// block, whose declared length is length bytes (4 for the ID, the rest for
// Data).
func parseApplication(br *bits.Reader, length int) (*Application, error) {
	id, err := br.Read(32)
	if err != nil {
		return nil, err
	}
	app := &Application{ID: uint32(id)}
	data, err := br.ReadBytes(length - 4)
	if err != nil {
		return nil, err
	}
	app.Data = data
	return app, nil
}
