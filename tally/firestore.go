package tally

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/whyrusleeping/skeeter/log"
)

const (
	DefaultFirestoreURL = "https://firestore.googleapis.com/v1"

	votesCollection     = "mosquitoVotes"
	aggregateCollection = "mosquitoVotesAgg"
	aggregateDoc        = "global"

	defaultPollInterval = 3 * time.Second
)

type FirestoreConfig struct {
	ProjectID    string
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
}

// Firestore talks to the Firestore REST API with a web API key. Records go
// to one collection, the aggregate lives in a single document whose counters
// are bumped with server-side increment transforms.
type Firestore struct {
	cfg    FirestoreConfig
	client *http.Client
}

func NewFirestore(cfg FirestoreConfig, client *http.Client) (*Firestore, error) {
	if cfg.ProjectID == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFirestoreURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Firestore{cfg: cfg, client: client}, nil
}

type fsValue struct {
	StringValue  *string  `json:"stringValue,omitempty"`
	IntegerValue *string  `json:"integerValue,omitempty"`
	DoubleValue  *float64 `json:"doubleValue,omitempty"`
}

type fsDocument struct {
	Name   string             `json:"name,omitempty"`
	Fields map[string]fsValue `json:"fields"`
}

type fsFieldTransform struct {
	FieldPath string  `json:"fieldPath"`
	Increment fsValue `json:"increment"`
}

type fsTransform struct {
	Document        string             `json:"document"`
	FieldTransforms []fsFieldTransform `json:"fieldTransforms"`
}

type fsWrite struct {
	Transform *fsTransform `json:"transform"`
}

type fsCommit struct {
	Writes []fsWrite `json:"writes"`
}

func str(s string) fsValue {
	return fsValue{StringValue: &s}
}

func integer(n int64) fsValue {
	s := strconv.FormatInt(n, 10)
	return fsValue{IntegerValue: &s}
}

func double(f float64) fsValue {
	return fsValue{DoubleValue: &f}
}

func (v fsValue) count() int {
	switch {
	case v.IntegerValue != nil:
		n, _ := strconv.Atoi(*v.IntegerValue)
		return n
	case v.DoubleValue != nil:
		return int(*v.DoubleValue)
	}
	return 0
}

func (f *Firestore) database() string {
	return "projects/" + f.cfg.ProjectID + "/databases/(default)"
}

func (f *Firestore) endpoint(path string) string {
	q := url.Values{}
	if f.cfg.APIKey != "" {
		q.Set("key", f.cfg.APIKey)
	}
	u := f.cfg.BaseURL + "/" + f.database() + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (f *Firestore) do(ctx context.Context, method, u string, body any, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("firestore %s: %s: %s", method, resp.Status, bytes.TrimSpace(msg))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding firestore response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (f *Firestore) AppendVoteRecord(ctx context.Context, rec Record) error {
	doc := fsDocument{Fields: map[string]fsValue{
		"id":          str(rec.ID),
		"result":      str(rec.Outcome.Key()),
		"freq":        double(rec.FrequencyHz),
		"mode":        str(rec.Mode),
		"ts":          str(rec.Timestamp.Format(time.RFC3339Nano)),
		"tzOffsetMin": integer(int64(rec.TZOffsetMin)),
		"ua":          str(rec.Agent),
	}}
	if _, err := f.do(ctx, http.MethodPost, f.endpoint("/documents/"+votesCollection), doc, nil); err != nil {
		return fmt.Errorf("append vote record: %w", err)
	}
	return nil
}

func (f *Firestore) IncrementAggregate(ctx context.Context, o Outcome) error {
	commit := fsCommit{Writes: []fsWrite{{
		Transform: &fsTransform{
			Document: f.database() + "/documents/" + aggregateCollection + "/" + aggregateDoc,
			FieldTransforms: []fsFieldTransform{{
				FieldPath: o.Key(),
				Increment: integer(1),
			}},
		},
	}}}
	if _, err := f.do(ctx, http.MethodPost, f.endpoint("/documents:commit"), commit, nil); err != nil {
		return fmt.Errorf("increment aggregate: %w", err)
	}
	return nil
}

func (f *Firestore) Aggregate(ctx context.Context) (Counts, error) {
	var doc fsDocument
	status, err := f.do(ctx, http.MethodGet, f.endpoint("/documents/"+aggregateCollection+"/"+aggregateDoc), nil, &doc)
	if status == http.StatusNotFound {
		// no votes yet
		return Counts{}, nil
	}
	if err != nil {
		return Counts{}, fmt.Errorf("read aggregate: %w", err)
	}
	return Counts{
		Worked:   doc.Fields[Worked.Key()].count(),
		NoEffect: doc.Fields[NoEffect.Key()].count(),
		Unknown:  doc.Fields[Unknown.Key()].count(),
	}, nil
}

// SubscribeAggregate polls the aggregate document and pushes every change.
// The first read happens before it returns, so an unreachable backend is
// reported immediately. A failed poll is reported to onErr once per outage,
// and the first good poll after it is always pushed.
func (f *Firestore) SubscribeAggregate(ctx context.Context, fn func(Counts), onErr func(error)) (func(), error) {
	first, err := f.Aggregate(ctx)
	if err != nil {
		return nil, err
	}
	fn(first)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		last := first
		failing := false
		ticker := time.NewTicker(f.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			c, err := f.Aggregate(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !failing {
					failing = true
					log.Warnf("aggregate poll failed: %v", err)
					if onErr != nil {
						onErr(err)
					}
				}
				continue
			}
			if c != last || failing {
				if failing {
					log.Info("aggregate poll recovered")
				}
				failing = false
				last = c
				fn(c)
			}
		}
	}()
	return cancel, nil
}
