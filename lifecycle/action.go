package lifecycle

import (
	"encoding/json"
	"io"

	"github.com/civicpulse/complaints-api/models"
)

// Action names on the wire
const (
	ActionLike            = "like"
	ActionToggleLike      = "toggleLike"
	ActionFaceSameIssue   = "faceSameIssue"
	ActionAddComment      = "addComment"
	ActionUpdateStatus    = "updateStatus"
	ActionVerifyComplaint = "verifyComplaint"
)

// Action is one of Like, FaceSameIssue, AddComment, UpdateStatus or VerifyComplaint.
// The set is closed; Engine.Apply switches over it.
type Action interface {
	Name() string
	action()
}

// Like adds one like, or removes one when Undo is set
type Like struct {
	Undo bool
}

// FaceSameIssue adds one to the facing same issue counter
type FaceSameIssue struct{}

// AddComment appends a comment written by the token holder
type AddComment struct {
	Content string
}

// UpdateStatus is the authority moving a complaint to Status. ProofImage is only kept
// when Status is solved. A non-nil Version must match the stored version.
type UpdateStatus struct {
	Status     models.Status
	ProofImage string
	Version    *int64
}

// VerifyComplaint is the author confirming (or rejecting) a resolution
type VerifyComplaint struct {
	Verified bool
	Version  *int64
}

func (Like) Name() string            { return ActionLike }
func (FaceSameIssue) Name() string   { return ActionFaceSameIssue }
func (AddComment) Name() string      { return ActionAddComment }
func (UpdateStatus) Name() string    { return ActionUpdateStatus }
func (VerifyComplaint) Name() string { return ActionVerifyComplaint }

func (Like) action()            {}
func (FaceSameIssue) action()   {}
func (AddComment) action()      {}
func (UpdateStatus) action()    {}
func (VerifyComplaint) action() {}

// Request is the JSON body of the action endpoint
type Request struct {
	Name       string        `json:"action"`
	Undo       bool          `json:"undo,omitempty"`
	Content    string        `json:"content,omitempty"`
	UserRole   models.Role   `json:"userRole,omitempty"` // ignored, the token decides
	Status     models.Status `json:"status,omitempty"`
	ProofImage string        `json:"proofImage,omitempty"`
	Verified   *bool         `json:"verified,omitempty"`
	Version    *int64        `json:"version,omitempty"`
}

// Action converts r into its typed action
func (r Request) Action() (Action, error) {
	switch r.Name {
	case ActionLike, ActionToggleLike:
		return Like{Undo: r.Undo}, nil
	case ActionFaceSameIssue:
		return FaceSameIssue{}, nil
	case ActionAddComment:
		return AddComment{Content: r.Content}, nil
	case ActionUpdateStatus:
		return UpdateStatus{Status: r.Status, ProofImage: r.ProofImage, Version: r.Version}, nil
	case ActionVerifyComplaint:
		if r.Verified == nil {
			return nil, fail(InvalidRequest, "verified is required", nil)
		}
		return VerifyComplaint{Verified: *r.Verified, Version: r.Version}, nil
	case "":
		return nil, fail(InvalidRequest, "action is required", nil)
	}
	return nil, fail(InvalidRequest, "unknown action "+r.Name, nil)
}

// NewRequest renders a into its wire form
func NewRequest(a Action) Request {
	switch a := a.(type) {
	case Like:
		return Request{Name: ActionLike, Undo: a.Undo}
	case FaceSameIssue:
		return Request{Name: ActionFaceSameIssue}
	case AddComment:
		return Request{Name: ActionAddComment, Content: a.Content}
	case UpdateStatus:
		return Request{Name: ActionUpdateStatus, Status: a.Status, ProofImage: a.ProofImage, Version: a.Version}
	case VerifyComplaint:
		v := a.Verified
		return Request{Name: ActionVerifyComplaint, Verified: &v, Version: a.Version}
	}
	return Request{}
}

// DecodeAction reads a Request from r and returns its typed action
func DecodeAction(r io.Reader) (Action, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fail(InvalidRequest, "malformed request body", err)
	}
	return req.Action()
}
