package finbert

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"sentiment-trading-bot/internal/interfaces"
	"sentiment-trading-bot/internal/logger"
	"sentiment-trading-bot/internal/sentiment"
	"sentiment-trading-bot/internal/types"
)

const DefaultMaxSeqLen = 128

var (
	ortInit    sync.Once
	ortInitErr error
)

// InitializeORT loads the onnxruntime shared library once per process.
func InitializeORT(libPath string) error {
	ortInit.Do(func() {
		if libPath == "" {
			libPath = "/usr/lib/libonnxruntime.so"
			if runtime.GOOS == "windows" {
				libPath = "onnxruntime.dll"
			} else if runtime.GOOS == "darwin" {
				libPath = "libonnxruntime.dylib"
			}
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// inferFunc scores one encoded headline and returns its class logits.
type inferFunc func(enc Encoding) ([]float32, error)

// Classifier scores headlines with a FinBERT sequence classification model.
type Classifier struct {
	mu     sync.Mutex
	tok    *Tokenizer
	maxLen int
	infer  inferFunc
	close  func()
}

var _ interfaces.SentimentModel = (*Classifier)(nil)

// Config locates the exported model, its vocab and the runtime library.
type Config struct {
	ModelPath   string
	VocabPath   string
	LibraryPath string
	MaxSeqLen   int
}

// New opens an ONNX session with fixed (1, MaxSeqLen) inputs.
func New(cfg Config) (*Classifier, error) {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = DefaultMaxSeqLen
	}
	tok, err := LoadVocab(cfg.VocabPath)
	if err != nil {
		return nil, err
	}
	if err := InitializeORT(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	shape := ort.NewShape(1, int64(cfg.MaxSeqLen))
	ids, err := ort.NewTensor(shape, make([]int64, cfg.MaxSeqLen))
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	mask, err := ort.NewTensor(shape, make([]int64, cfg.MaxSeqLen))
	if err != nil {
		ids.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	typeIDs, err := ort.NewTensor(shape, make([]int64, cfg.MaxSeqLen))
	if err != nil {
		ids.Destroy()
		mask.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(sentiment.Labels))))
	if err != nil {
		ids.Destroy()
		mask.Destroy()
		typeIDs.Destroy()
		return nil, fmt.Errorf("failed to create logits tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"}, []string{"logits"},
		[]ort.Value{ids, mask, typeIDs}, []ort.Value{logits}, nil)
	if err != nil {
		ids.Destroy()
		mask.Destroy()
		typeIDs.Destroy()
		logits.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	infer := func(enc Encoding) ([]float32, error) {
		copy(ids.GetData(), enc.InputIDs)
		copy(mask.GetData(), enc.AttentionMask)
		copy(typeIDs.GetData(), enc.TokenTypeIDs)
		if err := session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed: %w", err)
		}
		return append([]float32(nil), logits.GetData()...), nil
	}
	closeFn := func() {
		session.Destroy()
		ids.Destroy()
		mask.Destroy()
		typeIDs.Destroy()
		logits.Destroy()
	}
	return &Classifier{tok: tok, maxLen: cfg.MaxSeqLen, infer: infer, close: closeFn}, nil
}

// Estimate runs every headline through the model and aggregates the logits.
func (c *Classifier) Estimate(ctx context.Context, headlines []string) (types.SentimentSignal, error) {
	if len(headlines) == 0 {
		return types.NeutralSignal(), nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := make([][]float64, 0, len(headlines))
	for _, h := range headlines {
		if err := ctx.Err(); err != nil {
			return types.SentimentSignal{}, err
		}
		enc, err := c.tok.Encode(h, c.maxLen)
		if err != nil {
			return types.SentimentSignal{}, err
		}
		out, err := c.infer(enc)
		if err != nil {
			return types.SentimentSignal{}, err
		}
		row := make([]float64, len(out))
		for i, v := range out {
			row[i] = float64(v)
		}
		rows = append(rows, row)
	}

	sig, err := sentiment.FromLogits(rows)
	if err != nil {
		return types.SentimentSignal{}, err
	}
	logger.Debug(ctx, "FinBERT scored headlines", "headlines", len(headlines), "label", sig.Label, "probability", sig.Probability)
	return sig, nil
}

// Close releases the session and its tensors.
func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.close != nil {
		c.close()
		c.close = nil
	}
}
