package model

// TransactionSample is one dataset row in the pandas "split" orientation
type TransactionSample struct {
	Columns []string `json:"columns"`
	Index   []any    `json:"index"`
	Data    [][]any  `json:"data"`
}
