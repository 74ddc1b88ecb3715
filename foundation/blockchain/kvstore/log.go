package kvstore

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// Log is the durable append-only operation log backing a Store: records
// are `op:u8, key_len:u32, key, (value_len:u32, value if op=PUT)`, flushed
// to disk on every mutation per §6. Replaying the log at open time yields
// the latest value per key; a trailing OpDelete drops the entry.
type Log struct {
	f *os.File
}

// OpenLog opens (creating if necessary) the log file at path and replays
// its full contents, returning the still-open log handle for further
// appends alongside the ordered list of records read.
func OpenLog(path string) (*Log, []Write, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, nil, err
	}

	records, err := replay(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, nil, err
	}

	return &Log{f: f}, records, nil
}

// Close releases the underlying file handle.
func (l *Log) Close() error {
	return l.f.Close()
}

// Append writes one record to the log and flushes it to disk before
// returning, per §4.1's "flush on every mutation".
func (l *Log) Append(w Write) error {
	buf := make([]byte, 0, 9+len(w.Key)+len(w.Value))

	buf = append(buf, byte(w.Op))
	buf = appendUint32(buf, uint32(len(w.Key)))
	buf = append(buf, w.Key...)

	if w.Op == OpPut {
		buf = appendUint32(buf, uint32(len(w.Value)))
		buf = append(buf, w.Value...)
	}

	if _, err := l.f.Write(buf); err != nil {
		return err
	}

	return l.f.Sync()
}

func replay(f *os.File) ([]Write, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	r := bufio.NewReader(f)
	var records []Write

	for {
		opByte, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		keyLen, err := readUint32(r)
		if err != nil {
			return nil, err
		}

		key := make([]byte, keyLen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil, err
		}

		w := Write{Op: Op(opByte), Key: key}

		if w.Op == OpPut {
			valLen, err := readUint32(r)
			if err != nil {
				return nil, err
			}

			value := make([]byte, valLen)
			if _, err := io.ReadFull(r, value); err != nil {
				return nil, err
			}
			w.Value = value
		}

		records = append(records, w)
	}

	return records, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func readUint32(r *bufio.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
