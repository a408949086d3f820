package service

import (
	"encoding/binary"
	"fmt"
	"time"

	"cleanclip/model"

	"github.com/google/uuid"
)

// LoadTimezone 解析 IANA 时区名
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return nil, ErrInvalidTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, name)
	}
	return loc, nil
}

// LocalDate 返回 instant 在 loc 中的日历日期，规范化为 UTC 零点
func LocalDate(instant time.Time, loc *time.Location) time.Time {
	local := instant.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// pickIndex 对 (userID, date) 取确定性下标，范围 [0, n)
//
// 哈希取 uuid.NewSHA1(userID, "YYYY-MM-DD") 的前 8 字节，
// 对同一用户同一天的任意进程结果一致。
func pickIndex(userID uuid.UUID, date time.Time, n int) int {
	if n <= 0 {
		return -1
	}
	h := uuid.NewSHA1(userID, []byte(date.Format(model.DateLayout)))
	return int(binary.BigEndian.Uint64(h[:8]) % uint64(n))
}

// PickTemplate 从按 ID 升序的候选列表中确定性选择一个模板 ID
func PickTemplate(userID uuid.UUID, date time.Time, candidates []int64) (int64, bool) {
	idx := pickIndex(userID, date, len(candidates))
	if idx < 0 {
		return 0, false
	}
	return candidates[idx], true
}

// unseenTemplates 返回 active 中未出现在 seen 里的 ID，保持 active 的顺序
func unseenTemplates(active []int64, seen map[int64]bool) []int64 {
	out := make([]int64, 0, len(active))
	for _, id := range active {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}
