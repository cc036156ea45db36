package loan

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// TimeOfDay 一天内的时刻(距零点的时长)
// 借还记录把日期和时刻分两列存储,时刻列为TIME(6)
// 驱动对TIME列返回的是字符串而不是time.Time,所以自己实现Scanner/Valuer
type TimeOfDay time.Duration

const timeOfDayLayout = "15:04:05.000000"

// ClockOf 取t在其所在时区的时刻
func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	d := time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()/1000)*time.Microsecond
	return TimeOfDay(d)
}

// ParseTimeOfDay 解析 HH:MM:SS 或 HH:MM:SS.ffffff
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05.999999999", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// String 定长格式,字典序与时间先后一致(SQLite按文本比较)
func (c TimeOfDay) String() string {
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(c)).Format(timeOfDayLayout)
}

// Value 实现driver.Valuer
func (c TimeOfDay) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan 实现sql.Scanner
func (c *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = 0
		return nil
	case []byte:
		return c.parse(string(v))
	case string:
		return c.parse(v)
	case time.Time:
		*c = ClockOf(v)
		return nil
	}
	return fmt.Errorf("cannot scan %T into TimeOfDay", src)
}

func (c *TimeOfDay) parse(s string) error {
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
