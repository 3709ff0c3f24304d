package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"
)

// Dataset is an immutable ordered collection of records produced by a
// single Load call.
type Dataset struct {
	records []Record
}

func (d *Dataset) Len() int { return len(d.records) }

func (d *Dataset) Record(i int) Record { return d.records[i] }

// Records returns a copy of the record slice.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

// IDs returns the record IDs in dataset order.
func (d *Dataset) IDs() []string {
	ids := make([]string, len(d.records))
	for i, r := range d.records {
		ids[i] = r.ID
	}
	return ids
}

// Split is a disjoint train/test partition of a dataset.
type Split struct {
	Train *Dataset
	Test  *Dataset
}

// Stats summarizes a dataset for reporting and cost projection.
type Stats struct {
	RecordCount          int     `json:"record_count"`
	MessageCount         int     `json:"message_count"`
	AvgMessagesPerRecord float64 `json:"avg_messages_per_record"`
	SystemMessageCount   int     `json:"system_message_count"`
}

// Load reads a JSONL dataset, one chat record per line, and validates
// every record. Any malformed line fails the entire load.
func Load(path string) (*Dataset, error) {
	return LoadMax(path, 0)
}

// LoadMax is Load with an upper bound on the number of records kept;
// maxRecords <= 0 means no limit. The cap is useful for smoke runs
// against a large corpus.
func LoadMax(path string, maxRecords int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := parse(f, maxRecords)
	if err != nil {
		return nil, err
	}

	slog.Info("dataset loaded", "path", path, "records", ds.Len())
	return ds, nil
}

func parse(r io.Reader, maxRecords int) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer per line

	var records []Record
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, &ValidationError{
				RecordID: fmt.Sprintf("rec-%d", line),
				Line:     line,
				Reason:   fmt.Sprintf("invalid JSON: %v", err),
			}
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("rec-%d", line)
		}

		if reason := rec.validate(); reason != "" {
			return nil, &ValidationError{RecordID: rec.ID, Line: line, Reason: reason}
		}

		records = append(records, rec)
		if maxRecords > 0 && len(records) == maxRecords {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan dataset: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("empty dataset")
	}

	return &Dataset{records: records}, nil
}

// SplitDataset partitions a dataset into train and test subsets via a
// seed-driven permutation followed by a positional cut at floor(ratio*N).
// Identical (dataset, ratio, seed) inputs always yield the identical
// partition.
func SplitDataset(ds *Dataset, ratio float64, seed int64) (Split, error) {
	if ratio <= 0 || ratio >= 1 {
		return Split{}, fmt.Errorf("split ratio %v outside (0, 1)", ratio)
	}

	n := ds.Len()
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	cut := int(math.Floor(ratio * float64(n)))

	train := make([]Record, 0, cut)
	test := make([]Record, 0, n-cut)
	for i, p := range perm {
		if i < cut {
			train = append(train, ds.records[p])
		} else {
			test = append(test, ds.records[p])
		}
	}

	return Split{
		Train: &Dataset{records: train},
		Test:  &Dataset{records: test},
	}, nil
}

// Statistics is a pure read over a dataset.
func Statistics(ds *Dataset) Stats {
	total := 0
	system := 0
	for _, r := range ds.records {
		total += len(r.Messages)
		if r.Messages[0].Role == RoleSystem {
			system++
		}
	}
	return Stats{
		RecordCount:          ds.Len(),
		MessageCount:         total,
		AvgMessagesPerRecord: float64(total) / float64(ds.Len()),
		SystemMessageCount:   system,
	}
}

// WriteJSONL writes records back out in the dataset file format.
func WriteJSONL(records []Record, w io.Writer) error {
	for i, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", i, err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return nil
}
