package campus

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 校园目录查询
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建目录仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindFaculty 按姓名、院系、职称模糊匹配
func (r *Repository) FindFaculty(ctx context.Context, terms []string) (*Faculty, error) {
	return firstMatch[Faculty](ctx, r.db, []string{"name", "department", "designation"}, terms)
}

// FindCanteen 按名称匹配
func (r *Repository) FindCanteen(ctx context.Context, terms []string) (*Canteen, error) {
	return firstMatch[Canteen](ctx, r.db, []string{"name", "location"}, terms)
}

// FindWarden 按姓名或宿舍匹配
func (r *Repository) FindWarden(ctx context.Context, terms []string) (*Warden, error) {
	return firstMatch[Warden](ctx, r.db, []string{"name", "hostel"}, terms)
}

// FindBuilding 按名称或楼宇代码匹配
func (r *Repository) FindBuilding(ctx context.Context, terms []string) (*Building, error) {
	return firstMatch[Building](ctx, r.db, []string{"name", "code"}, terms)
}

// FindRoom 房间号忽略连字符比较，同时加载所在楼宇
func (r *Repository) FindRoom(ctx context.Context, candidates []string) (*Room, error) {
	return firstMatch[Room](ctx, r.db, []string{"REPLACE(room_number, '-', '')"}, candidates, "Building")
}

// firstMatch 对 columns × terms 做 ILIKE，命中词数多的行优先；无结果返回 nil, nil。
// columns 只来自本包常量。
func firstMatch[T any](ctx context.Context, db *gorm.DB, columns, terms []string, preload ...string) (*T, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		conds []string
		ranks []string
		args  []interface{}
	)
	for _, term := range terms {
		pattern := "%" + term + "%"
		hit := make([]string, 0, len(columns))
		for _, col := range columns {
			hit = append(hit, col+" ILIKE ?")
			args = append(args, pattern)
		}
		conds = append(conds, hit...)
		ranks = append(ranks, "CASE WHEN "+strings.Join(hit, " OR ")+" THEN 1 ELSE 0 END")
	}

	q := db.WithContext(ctx).
		Where(strings.Join(conds, " OR "), args...).
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:                "(" + strings.Join(ranks, " + ") + ") DESC",
			Vars:               args,
			WithoutParentheses: true,
		}})
	for _, p := range preload {
		q = q.Preload(p)
	}

	var out T
	if err := q.Take(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
