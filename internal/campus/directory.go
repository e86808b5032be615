package campus

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/aihub/campus-companion/internal/logger"
)

// ContactHandler 联系方式查询：食堂、宿舍管理员、教职工
type ContactHandler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewContactHandler 创建联系方式处理器
func NewContactHandler(repo *Repository, log *zap.Logger) *ContactHandler {
	return &ContactHandler{repo: repo, logger: logger.OrNop(log)}
}

type contactSource func(ctx context.Context, terms []string) (*Record, error)

// Lookup 按查询中的提示词决定先查哪张表，全部未命中返回 nil
func (h *ContactHandler) Lookup(ctx context.Context, query string) (*Record, error) {
	terms := ExtractKeywords(query)
	if len(terms) == 0 {
		return nil, nil
	}

	canteen := func(ctx context.Context, terms []string) (*Record, error) {
		c, err := h.repo.FindCanteen(ctx, terms)
		if err != nil || c == nil {
			return nil, err
		}
		return newRecord("canteen", c.Name,
			Detail{"Phone", c.Phone}, Detail{"Email", c.Email},
			Detail{"Location", c.Location}, Detail{"Timings", c.Timings}), nil
	}
	warden := func(ctx context.Context, terms []string) (*Record, error) {
		w, err := h.repo.FindWarden(ctx, terms)
		if err != nil || w == nil {
			return nil, err
		}
		return newRecord("warden", fmt.Sprintf("%s (Warden, %s)", w.Name, w.Hostel),
			Detail{"Phone", w.Phone}, Detail{"Email", w.Email}), nil
	}
	faculty := func(ctx context.Context, terms []string) (*Record, error) {
		f, err := h.repo.FindFaculty(ctx, terms)
		if err != nil || f == nil {
			return nil, err
		}
		return facultyRecord(f), nil
	}

	order := []contactSource{faculty, canteen, warden}
	switch {
	case mentions(terms, "canteen", "cafe", "cafeteria", "mess", "food", "juice", "dhaba"):
		order = []contactSource{canteen, warden, faculty}
	case mentions(terms, "warden", "hostel", "hall"):
		order = []contactSource{warden, canteen, faculty}
	}

	for _, source := range order {
		rec, err := source(ctx, terms)
		if err != nil {
			return nil, fmt.Errorf("contact lookup failed: %w", err)
		}
		if rec != nil {
			return rec, nil
		}
	}
	h.logger.Debug("no contact matched", zap.Strings("terms", terms))
	return nil, nil
}

// LocationHandler 地点查询：房间、楼宇、食堂
type LocationHandler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewLocationHandler 创建地点处理器
func NewLocationHandler(repo *Repository, log *zap.Logger) *LocationHandler {
	return &LocationHandler{repo: repo, logger: logger.OrNop(log)}
}

// Lookup 查询中带房间号时先查房间
func (h *LocationHandler) Lookup(ctx context.Context, query string) (*Record, error) {
	if rooms := roomCandidates(query); len(rooms) > 0 {
		room, err := h.repo.FindRoom(ctx, rooms)
		if err != nil {
			return nil, fmt.Errorf("room lookup failed: %w", err)
		}
		if room != nil {
			return roomRecord(room), nil
		}
	}

	terms := ExtractKeywords(query)
	if len(terms) == 0 {
		return nil, nil
	}

	building, err := h.repo.FindBuilding(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("building lookup failed: %w", err)
	}
	if building != nil {
		floors := ""
		if building.Floors > 0 {
			floors = strconv.Itoa(building.Floors)
		}
		return newRecord("building", building.Name,
			Detail{"Code", building.Code}, Detail{"Floors", floors}, Detail{"About", building.Description}), nil
	}

	canteen, err := h.repo.FindCanteen(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("canteen lookup failed: %w", err)
	}
	if canteen != nil && canteen.Location != "" {
		return newRecord("canteen", canteen.Name, Detail{"Location", canteen.Location}, Detail{"Timings", canteen.Timings}), nil
	}

	h.logger.Debug("no location matched", zap.Strings("terms", terms))
	return nil, nil
}

// FacultyHandler 教职工信息查询
type FacultyHandler struct {
	repo *Repository
}

// NewFacultyHandler 创建教职工处理器
func NewFacultyHandler(repo *Repository) *FacultyHandler {
	return &FacultyHandler{repo: repo}
}

// Lookup 按姓名或院系匹配
func (h *FacultyHandler) Lookup(ctx context.Context, query string) (*Record, error) {
	terms := ExtractKeywords(query)
	if len(terms) == 0 {
		return nil, nil
	}
	f, err := h.repo.FindFaculty(ctx, terms)
	if err != nil {
		return nil, fmt.Errorf("faculty lookup failed: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return facultyRecord(f), nil
}

func facultyRecord(f *Faculty) *Record {
	return newRecord("faculty", f.Name,
		Detail{"Designation", f.Designation}, Detail{"Department", f.Department},
		Detail{"Office", f.OfficeLocation}, Detail{"Email", f.Email}, Detail{"Phone", f.Phone})
}

func roomRecord(r *Room) *Record {
	details := []Detail{{"Floor", strconv.Itoa(r.Floor)}, {"Purpose", r.Purpose}}
	if r.Building != nil {
		details = append([]Detail{{"Building", r.Building.Name}}, details...)
	}
	return newRecord("room", "Room "+r.RoomNumber, details...)
}

func mentions(terms []string, words ...string) bool {
	for _, t := range terms {
		for _, w := range words {
			if t == w {
				return true
			}
		}
	}
	return false
}
