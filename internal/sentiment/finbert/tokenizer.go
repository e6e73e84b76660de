package finbert

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/processor"
)

const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenPAD = "[PAD]"
	tokenUNK = "[UNK]"
)

// Tokenizer is an uncased BERT WordPiece tokenizer with fixed-length output.
type Tokenizer struct {
	tk  *tokenizer.Tokenizer
	cls int64
	sep int64
	pad int64
}

// Encoding is one fixed-length model input row.
type Encoding struct {
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// LoadVocab builds the tokenizer from a vocab.txt file, one token per line,
// id = line number.
func LoadVocab(path string) (*Tokenizer, error) {
	model, err := wordpiece.NewWordPieceFromFile(path, tokenUNK)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocab: %w", err)
	}

	tk := tokenizer.NewTokenizer(model)
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, true, true, true))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	t := &Tokenizer{tk: tk}
	ids := make(map[string]int, 4)
	for _, name := range []string{tokenCLS, tokenSEP, tokenPAD, tokenUNK} {
		id, ok := tk.TokenToId(name)
		if !ok {
			return nil, fmt.Errorf("vocab is missing special token %s", name)
		}
		ids[name] = id
	}
	t.cls, t.sep, t.pad = int64(ids[tokenCLS]), int64(ids[tokenSEP]), int64(ids[tokenPAD])

	tk.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Id: ids[tokenSEP], Value: tokenSEP},
		processor.PostToken{Id: ids[tokenCLS], Value: tokenCLS},
	))
	return t, nil
}

// Encode builds [CLS] tokens [SEP] padded to maxLen. Long inputs are
// truncated and keep their trailing [SEP].
func (t *Tokenizer) Encode(text string, maxLen int) (Encoding, error) {
	if maxLen < 2 {
		maxLen = 2
	}
	en, err := t.tk.EncodeSingle(text, true)
	if err != nil {
		return Encoding{}, fmt.Errorf("encode: %w", err)
	}

	ids := en.Ids
	if len(ids) > maxLen {
		ids = append(ids[:maxLen-1:maxLen-1], int(t.sep))
	}

	enc := Encoding{
		InputIDs:      make([]int64, maxLen),
		AttentionMask: make([]int64, maxLen),
		TokenTypeIDs:  make([]int64, maxLen),
	}
	for i := range enc.InputIDs {
		if i < len(ids) {
			enc.InputIDs[i] = int64(ids[i])
			enc.AttentionMask[i] = 1
		} else {
			enc.InputIDs[i] = t.pad
		}
	}
	return enc, nil
}
