package registration

import (
	"encoding/json"
	"fmt"
)

// payloadVersion tags serialized form data so a stored blob can be
// decoded safely after the schema evolves.
const payloadVersion = 1

// CooperativePayload is the form data for a cooperative registration.
type CooperativePayload struct {
	Version       int    `json:"version"`
	Name          string `json:"name"`
	RegNumber     string `json:"regNumber"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode,omitempty"`
	ParentOrgID   string `json:"parentOrgId,omitempty"`

	LeaderFirstName string `json:"leaderFirstName"`
	LeaderLastName  string `json:"leaderLastName"`
	LeaderEmail     string `json:"leaderEmail"`
	LeaderPhone     string `json:"leaderPhone"`
	LeaderNIN       string `json:"leaderNin"`
	Password        string `json:"password"`
}

// MemberPayload is the form data for a member registration.
type MemberPayload struct {
	Version       int    `json:"version"`
	CooperativeID string `json:"cooperativeId"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	NIN           string `json:"nin"`
	Password      string `json:"password"`
}

// EncodeCooperativePayload serializes form data for storage.
func EncodeCooperativePayload(p CooperativePayload) (json.RawMessage, error) {
	p.Version = payloadVersion
	return json.Marshal(p)
}

// EncodeMemberPayload serializes form data for storage.
func EncodeMemberPayload(p MemberPayload) (json.RawMessage, error) {
	p.Version = payloadVersion
	return json.Marshal(p)
}

// DecodeCooperativePayload deserializes a stored cooperative payload.
func DecodeCooperativePayload(raw json.RawMessage) (CooperativePayload, error) {
	var p CooperativePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode cooperative payload: %w", err)
	}
	if p.Version != payloadVersion {
		return p, fmt.Errorf("unsupported cooperative payload version %d", p.Version)
	}
	return p, nil
}

// DecodeMemberPayload deserializes a stored member payload.
func DecodeMemberPayload(raw json.RawMessage) (MemberPayload, error) {
	var p MemberPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode member payload: %w", err)
	}
	if p.Version != payloadVersion {
		return p, fmt.Errorf("unsupported member payload version %d", p.Version)
	}
	return p, nil
}
