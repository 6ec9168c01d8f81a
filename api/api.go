package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	raven "github.com/getsentry/raven-go"

	"github.com/electmap/newsletter-backend/db"
	"github.com/electmap/newsletter-backend/email"
	"github.com/electmap/newsletter-backend/models"
)

////////////////////////////////
//  *****   REST API   *****  //
////////////////////////////////

// API is the HTTP gateway that this service provides. It validates
// requests and delegates to the subscription store and the newsletter
// emailer; all state lives behind those collaborators.
type API struct {
	Subscriptions *db.SubscriptionDB
	Emailer       Emailer
}

// Emailer interface wraps a back-end that can send the newsletter
// announcement to every active subscriber.
type Emailer interface {
	SendNewsletter(ctx context.Context, a email.Announcement) (int, error)
}

type apiResponse struct {
	statusCode int
	body       interface{}
}

type apiHandler func(r *http.Request) apiResponse

// Per-endpoint response bodies, matching the shapes the frontend
// consumes.

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
}

type subscribeBody struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	AlreadySubscribed bool   `json:"alreadySubscribed"`
}

type subscribersBody struct {
	Success     bool                        `json:"success"`
	Count       int                         `json:"count"`
	Subscribers []models.SubscriptionRecord `json:"subscribers"`
}

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sendBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Sent    int    `json:"sent"`
}

func (api *API) wrapper(handler apiHandler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		response := handler(r)
		if response.statusCode == http.StatusInternalServerError {
			if body, ok := response.body.(errorBody); ok {
				packet := raven.NewPacket(body.Error, raven.NewHttp(r))
				raven.Capture(packet, nil)
			}
		}
		writeJSON(w, response)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, apiResponse{
		statusCode: http.StatusOK,
		body:       map[string]string{"status": "ok"},
	})
}

// RegisterHandlers binds API functions to the given http server,
// and returns the resulting handler.
func (api *API) RegisterHandlers(mux *http.ServeMux) http.Handler {
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/newsletter/subscribe",
		throttleHandler(time.Hour, 20, http.HandlerFunc(api.wrapper(api.subscribe))))
	mux.HandleFunc("/newsletter/subscribers", api.wrapper(api.subscribers))
	mux.HandleFunc("/newsletter/unsubscribe", api.wrapper(api.unsubscribe))
	mux.Handle("/newsletter/send",
		throttleHandler(time.Hour, 10, http.HandlerFunc(api.wrapper(api.send))))
	return middleware(mux)
}

// Subscribe is the handler for /newsletter/subscribe.
//   POST /newsletter/subscribe
//        {"email": <address>}
//        Adds the address to the newsletter, reporting whether it was
//        already subscribed.
func (api *API) subscribe(r *http.Request) apiResponse {
	if r.Method != http.MethodPost {
		return methodNotAllowed("/newsletter/subscribe")
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return errorResponse(err)
	}
	alreadySubscribed, err := api.Subscriptions.Subscribe(r.Context(), req.Email)
	if err != nil {
		return errorResponse(err)
	}
	message := "Subscribed to the newsletter."
	if alreadySubscribed {
		message = "This address is already subscribed."
	}
	return apiResponse{
		statusCode: http.StatusOK,
		body: subscribeBody{
			Success:           true,
			Message:           message,
			AlreadySubscribed: alreadySubscribed,
		},
	}
}

// Subscribers is the handler for /newsletter/subscribers.
//   GET /newsletter/subscribers
//        Lists every active subscriber. A degraded backend yields an
//        empty list, still with status 200.
func (api *API) subscribers(r *http.Request) apiResponse {
	if r.Method != http.MethodGet {
		return methodNotAllowed("/newsletter/subscribers")
	}
	records := api.Subscriptions.List(r.Context())
	return apiResponse{
		statusCode: http.StatusOK,
		body: subscribersBody{
			Success:     true,
			Count:       len(records),
			Subscribers: records,
		},
	}
}

// Unsubscribe is the handler for /newsletter/unsubscribe.
//   POST /newsletter/unsubscribe
//        {"email": <address>}
//        Marks the subscription inactive. The record is kept.
func (api *API) unsubscribe(r *http.Request) apiResponse {
	if r.Method != http.MethodPost {
		return methodNotAllowed("/newsletter/unsubscribe")
	}
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return errorResponse(err)
	}
	if err := api.Subscriptions.Unsubscribe(r.Context(), req.Email); err != nil {
		return errorResponse(err)
	}
	return apiResponse{
		statusCode: http.StatusOK,
		body:       messageBody{Success: true, Message: "Unsubscribed from the newsletter."},
	}
}

// Send is the handler for /newsletter/send.
//   POST /newsletter/send
//        {"subject", "blogTitle", "blogExcerpt"?, "blogUrl", "blogDate"?}
//        Sends one announcement to every active subscriber in a single
//        batched provider call, reporting the recipient count attempted.
func (api *API) send(r *http.Request) apiResponse {
	if r.Method != http.MethodPost {
		return methodNotAllowed("/newsletter/send")
	}
	var req struct {
		Subject     string `json:"subject"`
		BlogTitle   string `json:"blogTitle"`
		BlogExcerpt string `json:"blogExcerpt"`
		BlogURL     string `json:"blogUrl"`
		BlogDate    string `json:"blogDate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return errorResponse(err)
	}
	sent, err := api.Emailer.SendNewsletter(r.Context(), email.Announcement{
		Subject: req.Subject,
		Title:   req.BlogTitle,
		Excerpt: req.BlogExcerpt,
		URL:     req.BlogURL,
		Date:    req.BlogDate,
	})
	if err != nil {
		return errorResponse(err)
	}
	return apiResponse{
		statusCode: http.StatusOK,
		body: sendBody{
			Success: true,
			Message: fmt.Sprintf("Newsletter sent to %d subscribers.", sent),
			Sent:    sent,
		},
	}
}

// errorResponse maps domain errors onto HTTP statuses. Validation fails
// fast with 400; a missing unsubscribe target is 404; everything else
// is a 500 with a human-readable message, plus a hint for provider
// rejections.
func errorResponse(err error) apiResponse {
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		return apiResponse{
			statusCode: http.StatusBadRequest,
			body:       errorBody{Error: validation.Message},
		}
	}
	if errors.Is(err, db.ErrNoRecord) {
		return apiResponse{
			statusCode: http.StatusNotFound,
			body:       errorBody{Error: "This address is not subscribed."},
		}
	}
	if errors.Is(err, email.ErrNotConfigured) {
		return apiResponse{
			statusCode: http.StatusInternalServerError,
			body:       errorBody{Error: "The email provider is not configured."},
		}
	}
	var provider *email.ProviderError
	if errors.As(err, &provider) {
		return apiResponse{
			statusCode: http.StatusInternalServerError,
			body:       errorBody{Error: provider.Message, Hint: provider.Hint},
		}
	}
	var backend *db.BackendFailure
	if errors.As(err, &backend) {
		return apiResponse{
			statusCode: http.StatusInternalServerError,
			body:       errorBody{Error: "The subscription could not be saved. Please try again."},
		}
	}
	return apiResponse{
		statusCode: http.StatusInternalServerError,
		body:       errorBody{Error: err.Error()},
	}
}

func methodNotAllowed(path string) apiResponse {
	return apiResponse{
		statusCode: http.StatusMethodNotAllowed,
		body:       errorBody{Error: fmt.Sprintf("%s does not accept this method", path)},
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &models.ValidationError{Message: "request body must be valid JSON"}
	}
	return nil
}

// Writes the response body as a JSON object to http.ResponseWriter `w`.
// If an error occurs, writes `http.StatusInternalServerError` to `w`.
func writeJSON(w http.ResponseWriter, response apiResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	b, err := json.MarshalIndent(response.body, "", "  ")
	if err != nil {
		msg := fmt.Sprintf("Internal error: could not format JSON. (%s)\n", err)
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(response.statusCode)
	fmt.Fprintf(w, "%s\n", b)
}
