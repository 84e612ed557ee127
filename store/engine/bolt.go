package engine

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nvkalinin/fantasy-calendar/calendar"
	"github.com/nvkalinin/fantasy-calendar/log"
	"github.com/nvkalinin/fantasy-calendar/store"
	"go.etcd.io/bbolt"
)

const notesBucket = "notes"

// Bolt хранит все заметки в одном бакете (const notesBucket).
// Ключ - дата в том виде, в каком ее выводит Date.String() ("5 Golus, 1318 YD"), значение - JSON store.Note.
//
// Такие ключи не сортируются по дате, поэтому месяц читается по каждому дню отдельно, в одной транзакции.
type Bolt struct {
	db *bbolt.DB
}

func NewBolt(file string) (*Bolt, error) {
	b, err := bbolt.Open(file, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open bolt store: %w", err)
	}
	log.Printf("[DEBUG] store/bolt opened %s successfully", file)

	return &Bolt{
		db: b,
	}, nil
}

func (b *Bolt) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("cannot close bolt store: %w", err)
	}
	log.Printf("[DEBUG] store/bolt closed successfully")
	return nil
}

func (b *Bolt) FindNote(d calendar.Date) (n *store.Note, ok bool) {
	_ = b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(notesBucket))
		if bucket == nil {
			return nil
		}

		n, ok = getNote(bucket, store.Key(d))
		return nil
	})
	return
}

func (b *Bolt) FindMonth(d calendar.Date) (notes store.Notes, ok bool) {
	_ = b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(notesBucket))
		if bucket == nil {
			return nil
		}

		notes = make(store.Notes)
		forEachDay(d, func(key string) {
			if note, found := getNote(bucket, key); found {
				notes[key] = *note
			}
		})
		return nil
	})

	if len(notes) == 0 {
		return nil, false
	}
	return notes, true
}

func getNote(bucket *bbolt.Bucket, key string) (*store.Note, bool) {
	noteJson := bucket.Get([]byte(key))
	log.Printf("[DEBUG] store/bolt get key=%s len=%d", key, len(noteJson))
	if noteJson == nil {
		return nil, false
	}

	n := &store.Note{}
	if err := json.Unmarshal(noteJson, n); err != nil {
		log.Printf("[WARN] bolt: invalid note at %s: %v", key, err)
		return nil, false
	}
	return n, true
}

func (b *Bolt) PutNote(d calendar.Date, note store.Note) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(notesBucket))
		if err != nil {
			return fmt.Errorf("bolt cannot create bucket '%s': %v", notesBucket, err)
		}

		key := []byte(store.Key(d))
		val, err := json.Marshal(note)
		if err != nil {
			return fmt.Errorf("bolt cannot marshal %s: %v", key, err)
		}

		log.Printf("[DEBUG] store/bolt put key=%s len=%d", key, len(val))
		if err := bucket.Put(key, val); err != nil {
			return fmt.Errorf("bolt cannot put %s: %v", key, err)
		}
		return nil
	})
}

func (b *Bolt) DeleteNote(d calendar.Date) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(notesBucket))
		if bucket == nil {
			return nil
		}

		key := []byte(store.Key(d))
		log.Printf("[DEBUG] store/bolt delete key=%s", key)
		if err := bucket.Delete(key); err != nil {
			return fmt.Errorf("bolt cannot delete %s: %v", key, err)
		}
		return nil
	})
}

func (b *Bolt) Backup(w io.Writer) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		log.Printf("[DEBUG] store/bolt writing backup len=%d", tx.Size())
		_, err := tx.WriteTo(w)
		return err
	})
}
