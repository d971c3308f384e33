package counter

import (
	"context"

	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/dal/db"
	"gorm.io/gorm"
)

// Tx 是一次尝试中的事务视图. 所有计数写入都带版本号比较, 版本变化返回 errno.ConflictErr
type Tx struct {
	ctx     context.Context
	db      *gorm.DB
	clamped []Repair
}

func (t *Tx) Context() context.Context {
	return t.ctx
}

// DB 返回事务句柄, 用于计数以外的写入
func (t *Tx) DB() *gorm.DB {
	return t.db
}

func (t *Tx) Read(ref model.DocRef, field string) (int64, error) {
	value, _, err := db.ReadCounter(t.ctx, t.db, ref, field)
	return value, err
}

// Add 写入 max(0, value+delta) 并返回新值.
// 结果小于0时说明事件乱序或计数已经偏离, 提交后会为该字段追加一个重算任务
func (t *Tx) Add(ref model.DocRef, field string, delta int64) (int64, error) {
	value, version, err := db.ReadCounter(t.ctx, t.db, ref, field)
	if err != nil {
		return 0, err
	}
	next := value + delta
	if next < 0 {
		t.clamped = append(t.clamped, Repair{
			Kind:     model.KindFor(ref, field),
			TargetID: ref.ID,
			Expected: next,
			Actual:   value,
		})
		next = 0
	}
	if next == value {
		return value, nil
	}
	if err := db.CompareAndSwapCounter(t.ctx, t.db, ref, field, version, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Set 覆盖计数, 值相同时不写入
func (t *Tx) Set(ref model.DocRef, field string, value int64) (old int64, changed bool, err error) {
	if value < 0 {
		value = 0
	}
	old, version, err := db.ReadCounter(t.ctx, t.db, ref, field)
	if err != nil {
		return 0, false, err
	}
	if old == value {
		return old, false, nil
	}
	if err := db.CompareAndSwapCounter(t.ctx, t.db, ref, field, version, value); err != nil {
		return old, false, err
	}
	return old, true, nil
}

// Update 以乐观锁方式更新文档的任意列
func (t *Tx) Update(ref model.DocRef, values map[string]interface{}) error {
	version, err := db.ReadVersion(t.ctx, t.db, ref)
	if err != nil {
		return err
	}
	return db.UpdateWithVersion(t.ctx, t.db, ref, version, values)
}
