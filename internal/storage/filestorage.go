package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"
)

var ErrBookingNotFound = errors.New("booking not found")

// FileStorage holds the whole collection in memory behind one mutex and
// rewrites a single JSON file on every mutation. The mutex serialises
// concurrent handlers in this process; a second process sharing the file can
// still lose updates, since the file itself carries no lock. That is an
// accepted limit of the flat-file shape.
type FileStorage struct {
	filePath string
	mu       sync.Mutex
	bookings []Booking

	timeNow func() time.Time
}

func NewFileStorage(filePath string) (*FileStorage, error) {
	fs := &FileStorage{
		filePath: filePath,
		timeNow:  func() time.Time { return time.Now().UTC() },
	}
	return fs, fs.load()
}

func (fs *FileStorage) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(&fs.bookings)
}

// save rewrites the whole file. Callers must hold fs.mu.
func (fs *FileStorage) save() error {
	file, err := os.Create(fs.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(fs.bookings)
}

func (fs *FileStorage) indexOf(ref string) int {
	for i := range fs.bookings {
		if fs.bookings[i].BookingRef == ref {
			return i
		}
	}
	return -1
}

// Upsert creates the booking as pending, or merges the submitted fields into
// the existing record. Status, CreatedAt and PaidAt never change here; only a
// verified webhook moves a booking to paid.
func (fs *FileStorage) Upsert(ctx context.Context, b Booking) (Booking, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i := fs.indexOf(b.BookingRef)
	if i < 0 {
		b.Status = StatusPending
		b.CreatedAt = fs.timeNow()
		b.PaidAt = nil
		fs.bookings = append(fs.bookings, b)
		i = len(fs.bookings) - 1
	} else {
		existing := &fs.bookings[i]
		b.Status = existing.Status
		b.CreatedAt = existing.CreatedAt
		b.PaidAt = existing.PaidAt
		*existing = b
	}

	if err := fs.save(); err != nil {
		return Booking{}, err
	}
	return fs.bookings[i], nil
}

// MarkPaid flips the booking to paid and stamps PaidAt. An unknown ref is a
// silent no-op: found reports whether anything changed.
func (fs *FileStorage) MarkPaid(ctx context.Context, ref string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i := fs.indexOf(ref)
	if i < 0 {
		return false, nil
	}

	now := fs.timeNow()
	fs.bookings[i].Status = StatusPaid
	fs.bookings[i].PaidAt = &now

	if err := fs.save(); err != nil {
		return false, err
	}
	return true, nil
}

func (fs *FileStorage) Get(ctx context.Context, ref string) (*Booking, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	i := fs.indexOf(ref)
	if i < 0 {
		return nil, ErrBookingNotFound
	}
	b := fs.bookings[i]
	return &b, nil
}

func (fs *FileStorage) List(ctx context.Context) ([]Booking, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make([]Booking, len(fs.bookings))
	copy(out, fs.bookings)
	return out, nil
}
