package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func TrimTailCommas(s string) string {
	return strings.TrimRight(s, ",")
}

// 解析"blue=2,green=3"形式的键值列表
func ParseKeyInts(s string) (ret map[string]int, err error) {
	ret = map[string]int{}
	s = TrimTailCommas(strings.TrimSpace(s))
	if s == "" {
		return
	}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok || k == "" {
			err = fmt.Errorf("malformed pair %q", pair)
			return
		}
		var i int
		if i, err = strconv.Atoi(strings.TrimSpace(v)); err != nil {
			err = fmt.Errorf("malformed value in %q: %w", pair, err)
			return
		}
		ret[k] = i
	}
	return
}

func GetNowTimeTag() string {
	const tf = "20060102150405.000"
	t := time.Now().Format(tf)
	return t[:len(tf)-4] + t[len(tf)-3:]
}
