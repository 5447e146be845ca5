package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"beidao-data/internal/domain"
)

// MemoryDevicesRepo DB 未就绪时的内存实现（也用于单元测试）
type MemoryDevicesRepo struct {
	mu      sync.RWMutex
	nextID  int64
	devices map[int64]*domain.Device
}

func NewMemoryDevicesRepo() *MemoryDevicesRepo {
	return &MemoryDevicesRepo{
		nextID:  1,
		devices: map[int64]*domain.Device{},
	}
}

func cloneDevice(d *domain.Device) *domain.Device {
	c := *d
	return &c
}

func (r *MemoryDevicesRepo) CreateDevice(_ context.Context, device *domain.Device) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.MACAddress == device.MACAddress {
			return 0, fmt.Errorf("mac address %s already registered: %w", device.MACAddress, domain.ErrConflict)
		}
	}

	id := r.nextID
	r.nextID++
	now := time.Now()
	d := cloneDevice(device)
	d.ID = id
	d.CreatedAt = now
	d.UpdatedAt = now
	r.devices[id] = d
	return id, nil
}

func (r *MemoryDevicesRepo) GetDevice(_ context.Context, id int64) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	return cloneDevice(d), nil
}

func (r *MemoryDevicesRepo) GetDeviceByMAC(_ context.Context, mac string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		if d.MACAddress == mac {
			return cloneDevice(d), nil
		}
	}
	return nil, fmt.Errorf("device %s: %w", mac, domain.ErrNotFound)
}

// sortNewestFirst 创建时间倒序（同刻按 id 倒序，与 SQL 排序一致）
func sortNewestFirst(all []*domain.Device) {
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
}

func (r *MemoryDevicesRepo) ListDevices(_ context.Context, filters DeviceFilters, page, size int) ([]*domain.Device, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.Device{}
	for _, d := range r.devices {
		if filters.DeviceType != "" && d.DeviceType != filters.DeviceType {
			continue
		}
		if filters.UserID > 0 && (!d.UserID.Valid || d.UserID.Int64 != filters.UserID) {
			continue
		}
		if kw := filters.SearchKeyword; kw != "" {
			if !strings.Contains(d.MACAddress, kw) && !strings.Contains(d.Name, kw) {
				continue
			}
		}
		all = append(all, cloneDevice(d))
	}
	sortNewestFirst(all)

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *MemoryDevicesRepo) ListDevicesByUser(_ context.Context, userID int64) ([]*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := []*domain.Device{}
	for _, d := range r.devices {
		if d.UserID.Valid && d.UserID.Int64 == userID {
			all = append(all, cloneDevice(d))
		}
	}
	sortNewestFirst(all)
	return all, nil
}

func (r *MemoryDevicesRepo) UpdateDevice(_ context.Context, id int64, upd DeviceUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	if upd.Name != nil {
		d.Name = *upd.Name
	}
	if upd.FirmwareVersion != nil {
		d.FirmwareVersion = *upd.FirmwareVersion
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryDevicesRepo) SetOnlineStatus(_ context.Context, id int64, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	d.IsOnline = online
	if online {
		d.LastSeenAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryDevicesRepo) BindUser(_ context.Context, deviceID, userID int64, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return fmt.Errorf("device %d: %w", deviceID, domain.ErrNotFound)
	}
	d.UserID = sql.NullInt64{Int64: userID, Valid: true}
	if name != "" {
		d.Name = name
	}
	d.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryDevicesRepo) UnbindUser(_ context.Context, deviceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return fmt.Errorf("device %d: %w", deviceID, domain.ErrNotFound)
	}
	d.UserID = sql.NullInt64{}
	d.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryDevicesRepo) ClearUserBindings(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.UserID.Valid && d.UserID.Int64 == userID {
			d.UserID = sql.NullInt64{}
			d.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (r *MemoryDevicesRepo) PairDevices(_ context.Context, detectorID, feedbackerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	det, ok := r.devices[detectorID]
	if !ok {
		return fmt.Errorf("device %d: %w", detectorID, domain.ErrNotFound)
	}
	fb, ok := r.devices[feedbackerID]
	if !ok {
		return fmt.Errorf("device %d: %w", feedbackerID, domain.ErrNotFound)
	}

	// 先清除双方旧配对的反向引用
	for _, d := range r.devices {
		if d.ID == detectorID || d.ID == feedbackerID {
			continue
		}
		if d.PairedDeviceID.Valid &&
			(d.PairedDeviceID.Int64 == detectorID || d.PairedDeviceID.Int64 == feedbackerID) {
			d.PairedDeviceID = sql.NullInt64{}
			d.UpdatedAt = time.Now()
		}
	}

	det.PairedDeviceID = sql.NullInt64{Int64: feedbackerID, Valid: true}
	fb.PairedDeviceID = sql.NullInt64{Int64: detectorID, Valid: true}
	det.UpdatedAt = time.Now()
	fb.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryDevicesRepo) DeleteDevice(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[id]; !ok {
		return fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	for _, d := range r.devices {
		if d.PairedDeviceID.Valid && d.PairedDeviceID.Int64 == id {
			d.PairedDeviceID = sql.NullInt64{}
			d.UpdatedAt = time.Now()
		}
	}
	delete(r.devices, id)
	return nil
}
