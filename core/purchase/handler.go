package purchase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
	"github.com/irsalhamdi/school-of-presence/payment"
	"github.com/irsalhamdi/school-of-presence/validate"
)

func failure(err error, msg string, status int, opts ...weberr.Opt) error {
	opts = append(opts, weberr.WithResponse(Result{Error: msg}, status))
	return weberr.Wrap(err, opts...)
}

// HandleConfirm records the purchase a buyer paid for. Payment failures and
// recording failures get distinct answers: only the latter means the money
// was taken.
func HandleConfirm(rc *Reconciler) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return failure(err, "User not authenticated", http.StatusUnauthorized)
		}

		var cf Confirmation
		if err := web.Decode(w, r, &cf); err != nil {
			return failure(fmt.Errorf("unable to decode payload: %w", err), "bad request", http.StatusBadRequest)
		}
		cf.PaymentReference = strings.TrimSpace(cf.PaymentReference)

		if err := validate.Check(cf); err != nil {
			return failure(err, err.Error(), http.StatusBadRequest,
				weberr.WithFields(map[string]interface{}{"invalid_fields": validate.Fields(cf)}))
		}

		rcp, err := rc.Confirm(ctx, Buyer{UserID: clm.UserID, Email: clm.Email}, cf)
		if err != nil {
			var ve *payment.VerificationError
			var re *payment.RecordingError
			switch {
			case errors.Is(err, ErrCourseNotFound):
				return failure(err, "Course not found", http.StatusNotFound)
			case errors.Is(err, ErrReferenceUsed):
				return failure(err, err.Error(), http.StatusConflict)
			case errors.As(err, &ve) && ve.Kind == payment.KindUnconfigured:
				return failure(err, "Server config error", http.StatusServiceUnavailable, weberr.WithFields(ve.LogFields()))
			case errors.As(err, &ve):
				return failure(err, ve.Error(), http.StatusPaymentRequired, weberr.WithFields(ve.LogFields()))
			case errors.As(err, &re):
				return weberr.Wrap(err,
					weberr.WithFields(re.LogFields()),
					weberr.WithResponse(Result{Error: re.Error(), Reference: re.Reference}, http.StatusInternalServerError),
				)
			}
			return fmt.Errorf("confirming purchase: %w", err)
		}

		res := Result{
			Success:   true,
			Duplicate: rcp.Duplicate,
			EmailSent: rcp.EmailSent,
		}
		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

// Owner answers whether a user holds a purchase for a course. Every answer
// comes from the store.
type Owner interface {
	Owns(ctx context.Context, userID, courseID string) (bool, error)
}

// Gate sends callers without a purchase for the {id} course elsewhere:
// anonymous callers to the login page and the rest to the course page.
// A malformed course id goes to the catalog. Targets are absolute URLs on
// site.
func Gate(o Owner, site string) web.Middleware {
	site = strings.TrimRight(site, "/")

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			courseID := web.Param(r, "id")
			if err := validate.CheckID(courseID); err != nil {
				return web.Redirect(w, r, site+"/courses", nil)
			}

			clm, err := claims.Get(ctx)
			if err != nil {
				q := url.Values{"next": {"/dashboard/courses/" + courseID}}
				return web.Redirect(w, r, site+"/login", q)
			}

			owned, err := o.Owns(ctx, clm.UserID, courseID)
			if err != nil {
				return fmt.Errorf("checking course access: %w", err)
			}
			if !owned {
				return web.Redirect(w, r, site+"/courses/"+url.PathEscape(courseID), nil)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// RequireOwnership is Gate for API calls: it answers 401 or 403 instead of
// redirecting.
func RequireOwnership(o Owner) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			courseID := web.Param(r, "id")
			if err := validate.CheckID(courseID); err != nil {
				return weberr.NotFound(err)
			}

			clm, err := claims.Get(ctx)
			if err != nil {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			owned, err := o.Owns(ctx, clm.UserID, courseID)
			if err != nil {
				return fmt.Errorf("checking course access: %w", err)
			}
			if !owned {
				return weberr.Forbidden(fmt.Errorf("user[%s] does not own course[%s]", clm.UserID, courseID))
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
