package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"acmsync/internal/checkoutapi"
	"acmsync/internal/logging"
	"acmsync/internal/revision"
)

// ErrBadRequest marks requests that are malformed rather than refused.
var ErrBadRequest = errors.New("bad request")

// Service applies the checkout protocol rules to the Store.
type Service struct {
	store      *Store
	minVersion int
	logger     *slog.Logger
	now        func() time.Time
	newKey     func() string
}

// NewService returns a Service that denies clients older than minVersion.
func NewService(store *Store, minVersion int, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		minVersion: minVersion,
		logger:     logging.NewComponentLogger(logger, "checkout-service"),
		now:        time.Now,
		newKey:     func() string { return uuid.NewString() },
	}
}

// Handle dispatches one protocol request.
func (s *Service) Handle(ctx context.Context, req checkoutapi.Request) (checkoutapi.Response, error) {
	acm, err := revision.CanonicalACM(req.ACM)
	if err != nil {
		return checkoutapi.Response{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	req.ACM = acm
	if strings.TrimSpace(req.Identity.Name) == "" {
		return checkoutapi.Response{}, fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if req.Version < s.minVersion {
		return checkoutapi.Response{
			Status:  checkoutapi.StatusDenied,
			Message: fmt.Sprintf("client version %d is older than the minimum %d; please update", req.Version, s.minVersion),
		}, nil
	}

	var resp checkoutapi.Response
	switch req.Action {
	case checkoutapi.ActionStatusCheck:
		resp, err = s.statusCheck(ctx, req)
	case checkoutapi.ActionCheckOut:
		resp, err = s.checkOut(ctx, req, false)
	case checkoutapi.ActionCreate:
		resp, err = s.checkOut(ctx, req, true)
	case checkoutapi.ActionCheckIn:
		resp, err = s.checkIn(ctx, req)
	case checkoutapi.ActionDiscard:
		resp, err = s.discard(ctx, req)
	case checkoutapi.ActionRevoke:
		resp, err = s.revoke(ctx, req)
	default:
		return checkoutapi.Response{}, fmt.Errorf("%w: unknown action %q", ErrBadRequest, req.Action)
	}
	if err != nil {
		return checkoutapi.Response{}, err
	}
	s.logger.Info("checkout request",
		logging.String("action", string(req.Action)),
		logging.String(logging.FieldACM, acm),
		logging.String(logging.FieldHolder, req.Identity.Name),
		logging.String("computer", req.Identity.ComputerName),
		logging.String("result", resp.Status),
	)
	return resp, nil
}

func (s *Service) state(ctx context.Context, acm string) (*checkoutapi.State, bool, error) {
	rec, err := s.store.GetACM(ctx, acm)
	if err != nil || rec == nil {
		return nil, false, err
	}
	co, err := s.store.GetCheckout(ctx, acm)
	if err != nil {
		return nil, false, err
	}
	state := toState(*rec, co)
	return &state, true, nil
}

func toState(rec ACMRecord, co *CheckoutRecord) checkoutapi.State {
	state := checkoutapi.State{
		ACMName:        rec.Name,
		LastInFileName: rec.LastInFileName,
		LastInName:     rec.LastInName,
		LastInContact:  rec.LastInContact,
		LastInDate:     rec.LastInDate,
	}
	if co != nil {
		state.NowOutName = co.HolderName
		state.NowOutContact = co.Contact
		state.NowOutComputerName = co.ComputerName
		state.NowOutDate = co.CheckedOutAt
	}
	return state
}

func (s *Service) statusCheck(ctx context.Context, req checkoutapi.Request) (checkoutapi.Response, error) {
	state, ok, err := s.state(ctx, req.ACM)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if !ok {
		return checkoutapi.Response{Status: checkoutapi.StatusNoDB}, nil
	}
	return checkoutapi.Response{Status: checkoutapi.StatusOK, Filename: state.LastInFileName, State: state}, nil
}

// checkOut grants the lease. With create set an unknown ACM is registered
// first; otherwise an unknown ACM is answered with nodb.
func (s *Service) checkOut(ctx context.Context, req checkoutapi.Request, create bool) (checkoutapi.Response, error) {
	now := s.now().UTC()
	if create {
		if _, err := s.store.CreateACM(ctx, req.ACM, now); err != nil {
			return checkoutapi.Response{}, err
		}
	}
	rec, err := s.store.GetACM(ctx, req.ACM)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if rec == nil {
		return checkoutapi.Response{Status: checkoutapi.StatusNoDB}, nil
	}

	candidate := CheckoutRecord{
		ACM:          req.ACM,
		HolderName:   req.Identity.Name,
		Contact:      req.Identity.Contact,
		ComputerName: req.Identity.ComputerName,
		Key:          s.newKey(),
		CheckedOutAt: now,
	}
	if _, err := s.store.InsertCheckout(ctx, candidate); err != nil {
		return checkoutapi.Response{}, err
	}
	co, err := s.store.GetCheckout(ctx, req.ACM)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if co == nil {
		return checkoutapi.Response{}, fmt.Errorf("checkout of %s vanished during request", req.ACM)
	}
	state := toState(*rec, co)
	if co.HolderName != req.Identity.Name || co.ComputerName != req.Identity.ComputerName {
		return checkoutapi.Response{
			Status:  checkoutapi.StatusDenied,
			Message: fmt.Sprintf("checked out by %s on %s", co.HolderName, co.ComputerName),
			State:   &state,
		}, nil
	}
	return checkoutapi.Response{
		Status:   checkoutapi.StatusOK,
		Key:      co.Key,
		Filename: rec.LastInFileName,
		State:    &state,
	}, nil
}

func (s *Service) checkIn(ctx context.Context, req checkoutapi.Request) (checkoutapi.Response, error) {
	if req.Key == "" {
		return checkoutapi.Response{}, fmt.Errorf("%w: key is required", ErrBadRequest)
	}
	if _, ok := revision.ParseName(req.Filename); !ok {
		return checkoutapi.Response{}, fmt.Errorf("%w: %q is not a revision filename", ErrBadRequest, req.Filename)
	}
	rec, err := s.store.GetACM(ctx, req.ACM)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if rec == nil {
		return checkoutapi.Response{Status: checkoutapi.StatusNoDB}, nil
	}
	if !revision.Newer(req.Filename, rec.LastInFileName) {
		return s.deny(ctx, req.ACM, fmt.Sprintf("%s is not newer than %s", req.Filename, rec.LastInFileName))
	}
	ok, err := s.store.CheckIn(ctx, req.ACM, req.Key, req.Filename, req.Identity.Name, req.Identity.Contact, s.now().UTC())
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if !ok {
		return s.deny(ctx, req.ACM, "checkout key does not match the current checkout")
	}
	state, _, err := s.state(ctx, req.ACM)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	return checkoutapi.Response{Status: checkoutapi.StatusOK, Filename: req.Filename, State: state}, nil
}

func (s *Service) discard(ctx context.Context, req checkoutapi.Request) (checkoutapi.Response, error) {
	if req.Key == "" {
		return checkoutapi.Response{}, fmt.Errorf("%w: key is required", ErrBadRequest)
	}
	ok, err := s.store.DeleteCheckout(ctx, req.ACM, req.Key)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if !ok {
		return s.deny(ctx, req.ACM, "checkout key does not match the current checkout")
	}
	state, _, err := s.state(ctx, req.ACM)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	return checkoutapi.Response{Status: checkoutapi.StatusOK, State: state}, nil
}

func (s *Service) revoke(ctx context.Context, req checkoutapi.Request) (checkoutapi.Response, error) {
	removed, err := s.store.DeleteCheckout(ctx, req.ACM, "")
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if removed {
		logging.WarnWithContext(s.logger, "checkout revoked", "checkout_revoked",
			logging.String(logging.FieldACM, req.ACM),
			logging.String("revoked_by", req.Identity.Name),
			logging.String(logging.FieldImpact, "the previous holder can no longer commit"),
		)
	}
	state, ok, err := s.state(ctx, req.ACM)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	if !ok {
		return checkoutapi.Response{Status: checkoutapi.StatusNoDB}, nil
	}
	return checkoutapi.Response{Status: checkoutapi.StatusOK, State: state}, nil
}

func (s *Service) deny(ctx context.Context, acm, message string) (checkoutapi.Response, error) {
	state, _, err := s.state(ctx, acm)
	if err != nil {
		return checkoutapi.Response{}, err
	}
	return checkoutapi.Response{Status: checkoutapi.StatusDenied, Message: message, State: state}, nil
}

// List returns the state of every ACM.
func (s *Service) List(ctx context.Context) ([]checkoutapi.State, error) {
	rows, err := s.store.ListStates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]checkoutapi.State, 0, len(rows))
	for _, row := range rows {
		out = append(out, toState(row.ACM, row.Checkout))
	}
	return out, nil
}

// ReserveSRN grants id a block of n serial numbers.
func (s *Service) ReserveSRN(ctx context.Context, id checkoutapi.Identity, n, version int) (checkoutapi.SRNResponse, error) {
	if strings.TrimSpace(id.Name) == "" {
		return checkoutapi.SRNResponse{}, fmt.Errorf("%w: name is required", ErrBadRequest)
	}
	if n <= 0 || n >= maxSerialEnd {
		return checkoutapi.SRNResponse{}, fmt.Errorf("%w: invalid block size %d", ErrBadRequest, n)
	}
	if version < s.minVersion {
		return checkoutapi.SRNResponse{
			Status:  checkoutapi.StatusDenied,
			Message: fmt.Sprintf("client version %d is older than the minimum %d; please update", version, s.minVersion),
		}, nil
	}
	block, err := s.store.ReserveSRN(ctx, id.Name, n, s.now().UTC())
	if errors.Is(err, ErrSRNExhausted) {
		logging.WarnWithContext(s.logger, "srn reservation denied", "srn_exhausted",
			logging.String(logging.FieldHolder, id.Name),
			logging.Int("requested", n),
			logging.String(logging.FieldErrorHint, "assign the user a new device id"),
		)
		return checkoutapi.SRNResponse{Status: checkoutapi.StatusDenied, Message: err.Error()}, nil
	}
	if err != nil {
		return checkoutapi.SRNResponse{}, err
	}
	s.logger.Info("srn block reserved",
		logging.String(logging.FieldHolder, id.Name),
		logging.Int("device_id", block.DeviceID),
		logging.Int("begin", block.Begin),
		logging.Int("end", block.End),
	)
	return checkoutapi.SRNResponse{
		Status: checkoutapi.StatusOK,
		ID:     block.DeviceID,
		Begin:  block.Begin,
		End:    block.End,
	}, nil
}
