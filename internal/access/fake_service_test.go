package access

import (
	"context"
	"fmt"
	"sync"
	"time"

	"acmsync/internal/checkoutapi"
)

type fakeACM struct {
	state checkoutapi.State
	key   string
}

// fakeService mimics the checkout server's lease semantics in memory.
type fakeService struct {
	mu        sync.Mutex
	acms      map[string]*fakeACM
	down      bool
	mutations int
	keys      int
}

func newFakeService() *fakeService {
	return &fakeService{acms: map[string]*fakeACM{}}
}

func (f *fakeService) register(acm, lastIn string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acms[acm] = &fakeACM{state: checkoutapi.State{ACMName: acm, LastInFileName: lastIn}}
}

func (f *fakeService) holdBy(acm string, id checkoutapi.Identity) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkout(f.acms[acm], id)
}

func (f *fakeService) revoke(acm string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.acms[acm]
	rec.key = ""
	rec.state.NowOutName, rec.state.NowOutContact, rec.state.NowOutComputerName = "", "", ""
	rec.state.NowOutDate = time.Time{}
}

func (f *fakeService) snapshot(acm string) checkoutapi.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acms[acm].state
}

func (f *fakeService) checkout(rec *fakeACM, id checkoutapi.Identity) string {
	f.keys++
	f.mutations++
	rec.key = fmt.Sprintf("key-%d", f.keys)
	rec.state.NowOutName = id.Name
	rec.state.NowOutContact = id.Contact
	rec.state.NowOutComputerName = id.ComputerName
	rec.state.NowOutDate = time.Now().UTC()
	return rec.key
}

func (f *fakeService) reply(status string, rec *fakeACM) checkoutapi.Response {
	resp := checkoutapi.Response{Status: status}
	if rec != nil {
		state := rec.state
		resp.State = &state
		resp.Filename = rec.state.LastInFileName
	}
	return resp
}

func (f *fakeService) StatusCheck(_ context.Context, acm string, _ checkoutapi.Identity) (checkoutapi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return checkoutapi.Response{}, checkoutapi.ErrUnreachable
	}
	rec, ok := f.acms[acm]
	if !ok {
		return checkoutapi.Response{Status: checkoutapi.StatusNoDB}, nil
	}
	return f.reply(checkoutapi.StatusOK, rec), nil
}

func (f *fakeService) CheckOut(_ context.Context, acm string, id checkoutapi.Identity) (checkoutapi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return checkoutapi.Response{}, checkoutapi.ErrUnreachable
	}
	rec, ok := f.acms[acm]
	if !ok {
		return checkoutapi.Response{Status: checkoutapi.StatusNoDB}, nil
	}
	if rec.state.CheckedOut() {
		if !rec.state.HeldBy(id) {
			return f.reply(checkoutapi.StatusDenied, rec), nil
		}
		resp := f.reply(checkoutapi.StatusOK, rec)
		resp.Key = rec.key
		return resp, nil
	}
	key := f.checkout(rec, id)
	resp := f.reply(checkoutapi.StatusOK, rec)
	resp.Key = key
	return resp, nil
}

func (f *fakeService) Create(_ context.Context, acm string, id checkoutapi.Identity) (checkoutapi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return checkoutapi.Response{}, checkoutapi.ErrUnreachable
	}
	rec, ok := f.acms[acm]
	if ok && rec.state.CheckedOut() && !rec.state.HeldBy(id) {
		return f.reply(checkoutapi.StatusDenied, rec), nil
	}
	if !ok {
		rec = &fakeACM{state: checkoutapi.State{ACMName: acm}}
		f.acms[acm] = rec
	}
	key := f.checkout(rec, id)
	resp := f.reply(checkoutapi.StatusOK, rec)
	resp.Key = key
	return resp, nil
}

func (f *fakeService) CheckIn(_ context.Context, acm string, id checkoutapi.Identity, key, filename string) (checkoutapi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return checkoutapi.Response{}, checkoutapi.ErrUnreachable
	}
	rec, ok := f.acms[acm]
	if !ok || rec.key == "" || rec.key != key {
		return f.reply(checkoutapi.StatusDenied, rec), nil
	}
	f.mutations++
	rec.key = ""
	rec.state.LastInFileName = filename
	rec.state.LastInName = id.Name
	rec.state.LastInDate = time.Now().UTC()
	rec.state.NowOutName, rec.state.NowOutContact, rec.state.NowOutComputerName = "", "", ""
	rec.state.NowOutDate = time.Time{}
	return f.reply(checkoutapi.StatusOK, rec), nil
}

func (f *fakeService) Discard(_ context.Context, acm string, _ checkoutapi.Identity, key, _ string) (checkoutapi.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return checkoutapi.Response{}, checkoutapi.ErrUnreachable
	}
	rec, ok := f.acms[acm]
	if !ok || rec.key == "" || rec.key != key {
		return f.reply(checkoutapi.StatusDenied, rec), nil
	}
	f.mutations++
	rec.key = ""
	rec.state.NowOutName, rec.state.NowOutContact, rec.state.NowOutComputerName = "", "", ""
	rec.state.NowOutDate = time.Time{}
	return f.reply(checkoutapi.StatusOK, rec), nil
}
