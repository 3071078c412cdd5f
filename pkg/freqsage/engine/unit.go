package engine

import (
	"github.com/cognicore/freqsage/pkg/freqsage/internalerr"
	"github.com/cognicore/freqsage/pkg/freqsage/kv"
	"github.com/cognicore/freqsage/pkg/freqsage/rank"
)

// unitOfWork pairs every primary-table write with its index update on one
// write transaction. Nothing it writes becomes visible unless the enclosing
// kv.Store.Update commits.
type unitOfWork struct {
	tx      kv.WriteTx
	records *RecordStore
	freqIdx *Index
	rankIdx *Index
	scorer  *rank.Scorer
}

// UpsertFrequency adds delta to the stored count of word, saturating at the
// uint64 maximum, and moves the word's frequency index entry.
func (u *unitOfWork) UpsertFrequency(word string, delta uint64) (created bool, err error) {
	if word == "" {
		return false, internalerr.Op("upsert_frequency", "", internalerr.ErrInvalidInput)
	}
	key := u.records.hasher.Word(word)
	prev, found, err := u.records.Frequency(u.tx, key)
	if err != nil {
		return false, err
	}
	if found && prev.Word != word {
		return false, internalerr.Inconsistent("upsert_frequency", word, "digest %s holds word %q", key.Short(), prev.Word)
	}

	rec := FrequencyRecord{Word: word, Count: rank.SaturatingAdd(prev.Count, delta)}
	if err := u.tx.Put(TableFrequencies, key[:], encodeFrequency(rec)); err != nil {
		return false, internalerr.Op("upsert_frequency", word, err)
	}

	var old *uint64
	if found {
		old = &prev.Count
	}
	if err := u.freqIdx.Update(u.tx, old, rec.Count, key); err != nil {
		return false, err
	}
	return !found, nil
}

// UpsertRanking stores candidate c with score computed. If the sentence is
// already stored, its score is recomputed from the current global word
// frequencies instead and the stored text is kept.
func (u *unitOfWork) UpsertRanking(c rank.Candidate, computed uint64) (created bool, score uint64, err error) {
	prev, found, err := u.records.Ranking(u.tx, c.Key)
	if err != nil {
		return false, 0, err
	}

	rec := SentenceRecord{Sentence: c.Text, Words: c.Words, Score: computed}
	if found {
		fs, err := u.records.frequenciesOf(u.tx, c.Words)
		if err != nil {
			return false, 0, err
		}
		rec.Sentence = prev.Sentence
		rec.Score = u.scorer.Score(fs)
	}

	if err := u.tx.Put(TableRankings, c.Key[:], encodeSentence(rec)); err != nil {
		return false, 0, internalerr.Op("upsert_ranking", c.Key.Short(), err)
	}

	var old *uint64
	if found {
		old = &prev.Score
	}
	if err := u.rankIdx.Update(u.tx, old, rec.Score, c.Key); err != nil {
		return false, 0, err
	}
	return !found, rec.Score, nil
}
