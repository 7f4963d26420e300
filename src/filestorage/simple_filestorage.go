package filestorage

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/andrewyi/pricewatch/src/entity"
	"github.com/andrewyi/pricewatch/src/util"
)

type SimpleFileStorage struct {
	location string
	now      func() time.Time
}

// location为空时不保存任何内容
func NewSimpleFileStorage(location string) FileStorage {
	return &SimpleFileStorage{
		location: location,
		now:      time.Now,
	}
}

// 以domain作为sharding key来建立文件夹，防止单一文件夹中包含文件数量过多
// 同一url多次失败会保存多份，文件名带时间戳
func (s *SimpleFileStorage) Store(page entity.PageInfo) (string, error) {
	if s.location == "" || page.Content == "" {
		return "", nil
	}

	domain, err := util.GetDomain(page.URL)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.location, domain)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil && !os.IsExist(err) {
		return "", err
	}

	name, err := util.FileName(page.URL)
	if err != nil {
		return "", err
	}
	fp := filepath.Join(dir, strconv.FormatInt(s.now().Unix(), 10)+"_"+name+".html")

	f, err := os.Create(fp)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err = f.WriteString(page.Content); err != nil {
		return "", err
	}
	return fp, nil
}
