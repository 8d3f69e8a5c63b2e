package utils

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const COMMENT_PREFIX = "#"

var (
	ErrEmptyTileList = errors.New("tile list is empty")
)

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// 读取景号列表（ESPA订单格式）：每行一个景号，忽略空行与#注释，去除重复
func ReadTileList(path string) (tiles []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, COMMENT_PREFIX) {
			continue
		}
		// 容许列表中带扩展名或目录的文件名
		line = GetFilenameWithoutExt(line)
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		tiles = append(tiles, line)
	}
	if err = sc.Err(); err != nil {
		return
	}
	if len(tiles) == 0 {
		err = ErrEmptyTileList
	}
	return
}
