package transaction

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"

	"weather-inference/internal/domain/model"
	"weather-inference/pkg/util/numberutils"
)

const (
	unixTimeColumn    = "unix_time"
	dateTimeColumn    = "trans_date_trans_time"
	currentTimeColumn = "current_time"
)

var errEmptyDataset = errors.New("transaction dataset has no rows")

type transactionUseCase struct {
	columns     []string
	keep        []int
	unixTimeIdx int
	rows        [][]string
	pick        func(n int) int
}

// NewTransactionUseCaseFromFile loads the CSV at path. Its first column is the row index.
func NewTransactionUseCaseFromFile(path string) (UseCase, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transaction dataset: %w", err)
	}
	defer func() { _ = file.Close() }()

	return NewTransactionUseCase(file, rand.IntN)
}

// NewTransactionUseCase reads the whole dataset from r; pick chooses a row in [0, n)
func NewTransactionUseCase(r io.Reader, pick func(n int) int) (UseCase, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read transaction dataset: %w", err)
	}
	if len(records) < 2 {
		return nil, errEmptyDataset
	}

	header := records[0]
	if len(header) < 2 {
		return nil, errors.New("transaction dataset needs an index column and at least one value column")
	}

	uc := &transactionUseCase{
		unixTimeIdx: slices.Index(header, unixTimeColumn),
		rows:        records[1:],
		pick:        pick,
	}
	if uc.unixTimeIdx < 0 {
		return nil, fmt.Errorf("transaction dataset has no %s column", unixTimeColumn)
	}

	for i := 1; i < len(header); i++ {
		if header[i] == unixTimeColumn || header[i] == dateTimeColumn {
			continue
		}
		uc.keep = append(uc.keep, i)
		uc.columns = append(uc.columns, header[i])
	}
	uc.columns = append(uc.columns, currentTimeColumn)

	return uc, nil
}

func (uc *transactionUseCase) CurrentTransaction(ctx context.Context) (*model.TransactionSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := uc.rows[uc.pick(len(uc.rows))]
	if len(row) <= uc.unixTimeIdx {
		return nil, fmt.Errorf("transaction row %q is truncated", row[0])
	}

	unixTime, err := strconv.ParseFloat(row[uc.unixTimeIdx], 64)
	if err != nil {
		return nil, fmt.Errorf("transaction row %q: invalid %s: %w", row[0], unixTimeColumn, err)
	}

	values := make([]any, 0, len(uc.columns))
	for _, i := range uc.keep {
		if i < len(row) {
			values = append(values, cellValue(row[i]))
		} else {
			values = append(values, nil)
		}
	}
	values = append(values, int64(math.Trunc(unixTime*1000)))

	return &model.TransactionSample{
		Columns: slices.Clone(uc.columns),
		Index:   []any{cellValue(row[0])},
		Data:    [][]any{values},
	}, nil
}

// cellValue keeps numbers numeric in the JSON output, like a typed dataframe would
func cellValue(raw string) any {
	if raw == "" {
		return nil
	}
	if i, err := numberutils.ToInt64WithError(raw); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}
