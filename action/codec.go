package action

import (
	"encoding/json"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/utils"
)

// Request is the wire envelope of one action. RequestId is the outbox entry id.
type Request struct {
	RequestId string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload"`
}

// Response is what the remote store answers for an applied action.
type Response struct {
	RequestId   string       `json:"request_id"`
	Replayed    bool         `json:"replayed"`
	Assignments []Assignment `json:"assignments"`
}

// ErrorResponse is the body of a refused action.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func Encode(a Action) (Tag, json.RawMessage, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", a.Tag(), err)
	}
	return a.Tag(), raw, nil
}

// New returns an empty action for tag.
func New(tag Tag) (Action, error) {
	switch tag {
	case TagCreateRecord:
		return &CreateRecord{}, nil
	case TagUpdateRecord:
		return &UpdateRecord{}, nil
	case TagSoftDeleteRecord:
		return &SoftDeleteRecord{}, nil
	case TagRestoreRecord:
		return &RestoreRecord{}, nil
	case TagSettleTotal:
		return &SettleTotal{}, nil
	case TagSettleDirect:
		return &SettleDirect{}, nil
	case TagTransferFunds:
		return &TransferFunds{}, nil
	case TagSetInitialBalances:
		return &SetInitialBalances{}, nil
	case TagDeleteCategory:
		return &DeleteCategory{}, nil
	case TagCreateLinkedStockTransaction:
		return &CreateLinkedStockTransaction{}, nil
	case TagUpdateStockTransaction:
		return &UpdateStockTransaction{}, nil
	case TagBatchImport:
		return &BatchImport{}, nil
	case TagDeleteAll:
		return &DeleteAll{}, nil
	case TagEmptyRecycleBin:
		return &EmptyRecycleBin{}, nil
	default:
		return nil, fmt.Errorf("unknown action tag %q", tag)
	}
}

func Decode(tag Tag, raw json.RawMessage) (Action, error) {
	a, err := New(tag)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag, err)
	}
	return a, nil
}

// DecodeResponse reads a success body.
func DecodeResponse(body []byte) (*Response, error) {
	resp, err := utils.DecodeJSON[Response](body)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}
