package rockmask

import "context"

type GdalGeo = []byte

// 远程波段文件的本地暂存（如S3），返回本地路径
type Stager interface {
	Stage(ctx context.Context, uri string) (string, error)
}

type Options struct {
	BandPattern string // 波段路径模板，含{tile}与{band}
	InputDir    string // 相对路径的模板在此目录下解析
	OutputDir   string
	OutputExt   string // 输出文件后缀，如"_rock.tif"
	Overwrite   bool
	Stager      Stager // BandPattern以s3://开头时必须提供
}
