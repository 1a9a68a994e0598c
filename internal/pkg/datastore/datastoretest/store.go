// Package datastoretest 提供 datastore 两种能力的内存实现，供各服务的单元测试使用。
package datastoretest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"storefront/internal/pkg/datastore"
)

// Row 是一行数据，列名到值。
type Row map[string]any

// Store 是内存版 PrivilegedStore。行以 JSON 往返解码进 dest，与 REST 实现的行为一致。
type Store struct {
	mu         sync.Mutex
	tables     map[string][]Row
	identities map[string]bool
	failures   map[string]error

	// BeforeSwap 在每次 CompareAndSwap 比较之前调用，测试用它模拟并发写入。
	BeforeSwap func(s *Store)
}

var _ datastore.PrivilegedStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		tables:     make(map[string][]Row),
		identities: make(map[string]bool),
		failures:   make(map[string]error),
	}
}

// Insert 向 table 追加行。
func (s *Store) Insert(table string, rows ...Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		cp := make(Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		s.tables[table] = append(s.tables[table], cp)
	}
}

// Rows 返回 table 中匹配 filter 的行的副本。
func (s *Store) Rows(table string, filter datastore.Filter) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Row
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			out = append(out, r)
		}
	}
	return out
}

// AddIdentity 登记一个身份。
func (s *Store) AddIdentity(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[userID] = true
}

func (s *Store) HasIdentity(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identities[userID]
}

// FailOn 让之后对 table 的所有操作返回 err。table 为 "auth" 时作用于 DeleteIdentity。
func (s *Store) FailOn(table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[table] = err
}

// Update 直接修改匹配行的一列。
func (s *Store) Update(table string, filter datastore.Filter, column string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateLocked(table, filter, column, value)
}

func (s *Store) FindOne(_ context.Context, table string, filter datastore.Filter, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[table]; err != nil {
		return err
	}
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			return roundTrip(r, dest)
		}
	}
	return datastore.ErrNotFound
}

func (s *Store) FindAll(_ context.Context, table string, filter datastore.Filter, orderBy string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[table]; err != nil {
		return err
	}
	out := []Row{}
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			out = append(out, r)
		}
	}
	if orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return fmt.Sprint(out[i][orderBy]) < fmt.Sprint(out[j][orderBy])
		})
	}
	return roundTrip(out, dest)
}

func (s *Store) DeleteWhere(_ context.Context, table string, filter datastore.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[table]; err != nil {
		return 0, err
	}
	if len(filter) == 0 {
		return 0, fmt.Errorf("refusing unfiltered delete on %s", table)
	}
	var kept []Row
	var deleted int64
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	s.tables[table] = kept
	return deleted, nil
}

func (s *Store) CompareAndSwap(_ context.Context, table string, filter datastore.Filter, column string, old, new any) (bool, error) {
	if s.BeforeSwap != nil {
		s.BeforeSwap(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[table]; err != nil {
		return false, err
	}
	guarded := datastore.Filter{column: old}
	for k, v := range filter {
		guarded[k] = v
	}
	return s.updateLocked(table, guarded, column, new) > 0, nil
}

func (s *Store) DeleteIdentity(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures["auth"]; err != nil {
		return err
	}
	if !s.identities[userID] {
		return datastore.ErrNotFound
	}
	delete(s.identities, userID)
	return nil
}

func (s *Store) updateLocked(table string, filter datastore.Filter, column string, value any) int {
	n := 0
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			r[column] = value
			n++
		}
	}
	return n
}

func matches(r Row, filter datastore.Filter) bool {
	for col, want := range filter {
		got, ok := r[col]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func roundTrip(src, dest any) error {
	buf, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, dest)
}

// Scoped 是内存版 ScopedStore，token 到身份的映射。
type Scoped struct {
	Tokens map[string]datastore.Identity
	Err    error
}

var _ datastore.ScopedStore = (*Scoped)(nil)

func (s *Scoped) ResolveIdentity(_ context.Context, accessToken string) (*datastore.Identity, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	id, ok := s.Tokens[accessToken]
	if !ok {
		return nil, datastore.ErrUnauthorized
	}
	return &id, nil
}
