package external

// InvocationRequest is the MLflow scoring server dataframe_split payload.
type InvocationRequest struct {
	DataframeSplit DataframeSplit `json:"dataframe_split"`
}

// DataframeSplit mirrors the pandas "split" orientation. Cells are nil where
// the feature is NaN, since JSON has no NaN literal.
type DataframeSplit struct {
	Columns []string     `json:"columns"`
	Data    [][]*float64 `json:"data"`
}

// LabelArtifact is the serialized label mapping stored next to a trained model.
type LabelArtifact struct {
	Classes []string `json:"classes"`
}

// MLflowErrorResponse is the error body returned by the tracking and scoring servers.
type MLflowErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}
