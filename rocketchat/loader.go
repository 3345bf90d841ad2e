package rocketchat

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// maxLineSize bounds a single exported record. Messages with large
// attachments arrays can exceed bufio's 64KiB default.
const maxLineSize = 16 * 1024 * 1024

// Record is a source record with a stable primary key.
type Record interface {
	SourceID() string
}

// ReadLines decodes a JSON-lines stream. Blank lines are ignored, records
// whose id was already seen are dropped, and the remaining records keep
// their order in the stream.
func ReadLines[T Record](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var records []T
	seen := make(map[string]struct{})
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		id := record.SourceID()
		if id == "" {
			return nil, errors.Errorf("line %d: record has no _id", line)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed reading line %d", line+1)
	}
	return records, nil
}

// LoadFile reads the JSON-lines export file at path.
func LoadFile[T Record](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	records, err := ReadLines[T](f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return records, nil
}

// Export gives access to the three export files of an input directory.
type Export struct {
	Dir string
}

// Users loads users.json.
func (e Export) Users() ([]User, error) {
	return LoadFile[User](filepath.Join(e.Dir, UsersFile))
}

// Rooms loads rocketchat_room.json.
func (e Export) Rooms() ([]Room, error) {
	return LoadFile[Room](filepath.Join(e.Dir, RoomsFile))
}

// Messages loads rocketchat_message.json.
func (e Export) Messages() ([]Message, error) {
	return LoadFile[Message](filepath.Join(e.Dir, MessagesFile))
}
