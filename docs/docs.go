// Package docs Civic Complaints API.
//
// Documentation of the Civic Complaints API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: complaints-api.herokuapp.com
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/auth/signup auth signUp
// Registers a citizen and returns a token.
// responses:
//   201: authResponse
//   400: errorResponse
//   403: errorResponse
//   409: errorResponse

// swagger:parameters signUp
type signUpParamsWrapper struct {
	// in:body
	Body models.SignUpRequest
}

// swagger:route POST /api/v1/auth/signin auth signIn
// Signs a user in with basic auth or a usernameOrEmail/password body. The role inside
// the token is derived from the authority allow list at every sign-in.
// responses:
//   200: authResponse
//   400: errorResponse
//   401: errorResponse

// A signed token and the signed-in user.
// swagger:response authResponse
type authResponseWrapper struct {
	// in:body
	Body models.AuthResponse
}

// swagger:route GET /api/v1/complaints complaints listComplaints
// Lists complaints newest first.
// responses:
//   200: complaintListResponse
//   400: errorResponse

// swagger:parameters listComplaints
type listComplaintsParamsWrapper struct {
	// in:query
	Region string `json:"region"`
	// in:query
	Status string `json:"status"`
	// in:query
	Category string `json:"category"`
	// in:query
	Limit int `json:"limit"`
	// in:query
	Page int `json:"page"`
}

// swagger:response complaintListResponse
type complaintListResponseWrapper struct {
	// in:body
	Body models.ComplaintListResponse
}

// swagger:route POST /api/v1/complaints complaints createComplaint
// Files a complaint for the bearer of the token.
// responses:
//   201: complaintResponse
//   400: errorResponse
//   401: errorResponse

// swagger:parameters createComplaint
type createComplaintParamsWrapper struct {
	// in:body
	Body models.CreateComplaintRequest
}

// swagger:route GET /api/v1/complaints/{complaint_id} complaints complaintByID
// Gets a single complaint by ID.
// responses:
//   200: complaintResponse
//   400: errorResponse
//   404: errorResponse

// swagger:route PATCH /api/v1/complaints/{complaint_id} complaints complaintAction
// Applies one action: like, faceSameIssue, addComment, updateStatus or verifyComplaint.
// responses:
//   200: complaintResponse
//   400: errorResponse
//   401: errorResponse
//   403: errorResponse
//   404: errorResponse
//   409: errorResponse

// swagger:parameters complaintAction
type complaintActionParamsWrapper struct {
	// in:path
	ComplaintID string `json:"complaint_id"`
	// in:body
	Body lifecycle.Request
}

// A single complaint.
// swagger:response complaintResponse
type complaintResponseWrapper struct {
	// in:body
	Body models.ComplaintResponse
}

// swagger:route POST /api/v1/upload/image upload uploadImage
// Stores an image on the image host.
// responses:
//   200: uploadImageResponse
//   400: errorResponse
//   503: errorResponse

// swagger:parameters uploadImage
type uploadImageParamsWrapper struct {
	// in:body
	Body models.UploadImageRequest
}

// swagger:response uploadImageResponse
type uploadImageResponseWrapper struct {
	// in:body
	Body models.UploadImageResponse
}

// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
