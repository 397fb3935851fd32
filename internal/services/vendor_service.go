package services

import (
	"sort"
	"strings"
	"time"
)

// VendorStore abstracts vendor reads/creation plus the evaluation and
// discard lookups the selection gate needs.
type VendorStore interface {
	AddVendor(v *Vendor) error
	GetVendor(id string) (*Vendor, error)
	ListVendors() ([]*Vendor, error)
	ListEvaluationsByUser(uid string) ([]*EvaluationRecord, error)
}

// SelectableVendor is a vendor row annotated for the selection view.
type SelectableVendor struct {
	Vendor           *Vendor `json:"vendor"`
	AlreadyEvaluated bool    `json:"already_evaluated"`
}

// VendorService filters vendor lists for selection and blocks vendors that
// are already evaluated by the caller or discarded.
type VendorService struct {
	store VendorStore
	now   func() time.Time
	idGen func(n int) string
}

func NewVendorService(store VendorStore) *VendorService {
	return &VendorService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: shortID,
	}
}

// CreateVendor registers a vendor for evaluation. Vendors are never hard
// deleted; disqualification happens through discard records.
func (s *VendorService) CreateVendor(name string, isNew bool) (*Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewInvalidError("vendor name required")
	}
	v := &Vendor{
		ID:        s.idGen(8),
		Name:      name,
		IsNew:     isNew,
		CreatedAt: s.now(),
	}
	if err := s.store.AddVendor(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListSelectable returns the vendors for the given context, marking the ones
// the caller has already evaluated so the view can disable them. Discarded
// vendors are excluded outright.
func (s *VendorService) ListSelectable(ctx EvalContext, uid string) ([]*SelectableVendor, error) {
	vendors, err := s.store.ListVendors()
	if err != nil {
		return nil, err
	}
	evaluated, err := s.evaluatedVendorIDs(uid)
	if err != nil {
		return nil, err
	}
	out := make([]*SelectableVendor, 0, len(vendors))
	for _, v := range vendors {
		if v.IsNew != (ctx == ContextNew) {
			continue
		}
		if v.Discarded {
			continue
		}
		out = append(out, &SelectableVendor{
			Vendor:           v,
			AlreadyEvaluated: evaluated[v.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Vendor.Name) < strings.ToLower(out[j].Vendor.Name)
	})
	return out, nil
}

// Gate refuses a force-selected vendor that is unknown, discarded, or
// already evaluated by this user. This pre-check is advisory; the store's
// conflict check on evaluation creation is the backstop.
func (s *VendorService) Gate(uid, vendorID string) (*Vendor, error) {
	v, err := s.store.GetVendor(vendorID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, NewNotFoundError("vendor not found")
	}
	if v.Discarded {
		return nil, NewForbiddenError("vendor has been discarded")
	}
	evaluated, err := s.evaluatedVendorIDs(uid)
	if err != nil {
		return nil, err
	}
	if evaluated[v.ID] {
		return nil, NewConflictError("vendor already evaluated")
	}
	return v, nil
}

func (s *VendorService) evaluatedVendorIDs(uid string) (map[string]bool, error) {
	records, err := s.store.ListEvaluationsByUser(uid)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(records))
	for _, r := range records {
		ids[r.VendorID] = true
	}
	return ids, nil
}
