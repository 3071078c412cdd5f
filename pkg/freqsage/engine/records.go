package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/cognicore/freqsage/pkg/freqsage/contenthash"
	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv"
)

// FrequencyRecord is the aggregated count of one cleaned word.
type FrequencyRecord struct {
	Word  string
	Count uint64
}

// SentenceRecord is a ranked sentence. Words is the cleaned word sequence the
// record is keyed by; Score is derived from the words' global frequencies.
type SentenceRecord struct {
	Sentence string
	Words    []string
	Score    uint64
}

// Both record encodings start with the big-endian sort value so the index
// can be rebuilt without decoding the rest of the record.
//
//	frequency: count u64 | word
//	sentence:  score u64 | u32 len | text | u32 n | (u32 len | word)*n

func encodeFrequency(r FrequencyRecord) []byte {
	b := make([]byte, 8, 8+len(r.Word))
	binary.BigEndian.PutUint64(b, r.Count)
	return append(b, r.Word...)
}

func decodeFrequency(b []byte) (FrequencyRecord, error) {
	if len(b) < 8 {
		return FrequencyRecord{}, fmt.Errorf("frequency record too short (%d bytes)", len(b))
	}
	return FrequencyRecord{
		Count: binary.BigEndian.Uint64(b),
		Word:  string(b[8:]),
	}, nil
}

func encodeSentence(r SentenceRecord) []byte {
	size := 8 + 4 + len(r.Sentence) + 4
	for _, w := range r.Words {
		size += 4 + len(w)
	}
	b := make([]byte, 0, size)
	b = binary.BigEndian.AppendUint64(b, r.Score)
	b = appendString(b, r.Sentence)
	b = binary.BigEndian.AppendUint32(b, uint32(len(r.Words)))
	for _, w := range r.Words {
		b = appendString(b, w)
	}
	return b
}

func decodeSentence(b []byte) (SentenceRecord, error) {
	var r SentenceRecord
	if len(b) < 8 {
		return r, fmt.Errorf("sentence record too short (%d bytes)", len(b))
	}
	r.Score = binary.BigEndian.Uint64(b)
	rest := b[8:]

	var err error
	if r.Sentence, rest, err = readString(rest); err != nil {
		return r, fmt.Errorf("sentence text: %w", err)
	}
	if len(rest) < 4 {
		return r, fmt.Errorf("sentence word count truncated")
	}
	n := binary.BigEndian.Uint32(rest)
	rest = rest[4:]
	if uint64(n) > uint64(len(rest))/4 {
		return r, fmt.Errorf("sentence word count %d exceeds record size", n)
	}
	r.Words = make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		var w string
		if w, rest, err = readString(rest); err != nil {
			return r, fmt.Errorf("word %d: %w", i, err)
		}
		r.Words = append(r.Words, w)
	}
	if len(rest) != 0 {
		return r, fmt.Errorf("%d trailing bytes in sentence record", len(rest))
	}
	return r, nil
}

func appendString(b []byte, s string) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func readString(b []byte) (string, []byte, error) {
	if len(b) < 4 {
		return "", nil, fmt.Errorf("length prefix truncated")
	}
	n := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint64(n) > uint64(len(b)) {
		return "", nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, len(b))
	}
	return string(b[:n]), b[n:], nil
}

// sortValue reads the leading sort value shared by both record encodings.
func sortValue(v []byte) (uint64, error) {
	if len(v) < 8 {
		return 0, fmt.Errorf("record too short (%d bytes)", len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

// RecordStore reads the two primary tables. Writes go through a unitOfWork so
// they are always paired with an index update.
type RecordStore struct {
	hasher contenthash.Hasher
}

// NewRecordStore returns a RecordStore that keys records with h.
func NewRecordStore(h contenthash.Hasher) *RecordStore {
	return &RecordStore{hasher: h}
}

// Frequency loads the frequency record stored under key.
func (r *RecordStore) Frequency(tx kv.ReadTx, key contenthash.Digest) (FrequencyRecord, bool, error) {
	v, found, err := tx.Get(TableFrequencies, key[:])
	if err != nil || !found {
		return FrequencyRecord{}, false, internalerr.Op("get_frequency", key.Short(), err)
	}
	rec, err := decodeFrequency(v)
	if err != nil {
		return FrequencyRecord{}, false, internalerr.Inconsistent("get_frequency", key.Short(), "corrupt record: %v", err)
	}
	return rec, true, nil
}

// Ranking loads the sentence record stored under key.
func (r *RecordStore) Ranking(tx kv.ReadTx, key contenthash.Digest) (SentenceRecord, bool, error) {
	v, found, err := tx.Get(TableRankings, key[:])
	if err != nil || !found {
		return SentenceRecord{}, false, internalerr.Op("get_ranking", key.Short(), err)
	}
	rec, err := decodeSentence(v)
	if err != nil {
		return SentenceRecord{}, false, internalerr.Inconsistent("get_ranking", key.Short(), "corrupt record: %v", err)
	}
	return rec, true, nil
}

// ExistsBatch loads the frequency records of words that are expected to be
// stored already. A missing word means an upstream component broke the
// contract that every ranked word is counted, and is reported as
// ErrInconsistent.
func (r *RecordStore) ExistsBatch(tx kv.ReadTx, words []string) (map[string]FrequencyRecord, error) {
	out := make(map[string]FrequencyRecord, len(words))
	for _, w := range words {
		if _, ok := out[w]; ok {
			continue
		}
		rec, found, err := r.Frequency(tx, r.hasher.Word(w))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, internalerr.Inconsistent("exists_batch", w, "word has no frequency record")
		}
		out[w] = rec
	}
	return out, nil
}

// frequenciesOf returns the stored counts of words, in order.
func (r *RecordStore) frequenciesOf(tx kv.ReadTx, words []string) ([]uint64, error) {
	recs, err := r.ExistsBatch(tx, words)
	if err != nil {
		return nil, err
	}
	fs := make([]uint64, len(words))
	for i, w := range words {
		fs[i] = recs[w].Count
	}
	return fs, nil
}
