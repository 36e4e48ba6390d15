package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"AmberWatch/pkg/constant"
	"AmberWatch/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/oschwald/geoip2-golang"
	"go.uber.org/zap"
)

const actorIDKey = constant.ActorIDField

// OperationEntry 一条操作审计
type OperationEntry struct {
	ActorID   string
	Action    string
	Target    string
	Status    int
	IP        string
	UserAgent string
	Browser   string
	OS        string
	Location  string
	At        time.Time
}

// OperationRecorder 审计落库
type OperationRecorder interface {
	RecordOperation(ctx context.Context, e OperationEntry) error
}

// GeoLocator IP 归属地查询，未配置数据库时返回空
type GeoLocator struct {
	reader *geoip2.Reader
}

// OpenGeoLocator path 为空时返回 nil，调用方无需判断
func OpenGeoLocator(path string) (*GeoLocator, error) {
	if path == "" {
		return nil, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoLocator{reader: r}, nil
}

func (g *GeoLocator) City(ip string) string {
	if g == nil || g.reader == nil {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	record, err := g.reader.City(parsed)
	if err != nil {
		return ""
	}
	city := record.City.Names["en"]
	if country := record.Country.IsoCode; country != "" {
		if city == "" {
			return country
		}
		return city + ", " + country
	}
	return city
}

func (g *GeoLocator) Close() error {
	if g == nil || g.reader == nil {
		return nil
	}
	return g.reader.Close()
}

// OperationLogMiddleware 仅记录成功的变更请求；审计失败只记日志，不影响响应
func OperationLogMiddleware(rec OperationRecorder, geo *GeoLocator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method == http.MethodGet || c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		actorID := c.GetString(actorIDKey)
		if actorID == "" {
			return
		}

		ua := user_agent.New(c.Request.UserAgent())
		browser, version := ua.Browser()
		ip := clientIPFromRequest(c)
		target := c.Request.URL.Path
		if full := c.FullPath(); full != "" {
			target = full + " " + c.Param("id")
		}

		entry := OperationEntry{
			ActorID:   actorID,
			Action:    c.Request.Method,
			Target:    target,
			Status:    c.Writer.Status(),
			IP:        ip,
			UserAgent: c.Request.UserAgent(),
			Browser:   browser + " " + version,
			OS:        ua.OS(),
			Location:  geo.City(ip),
			At:        time.Now().UTC(),
		}
		if err := rec.RecordOperation(context.WithoutCancel(c.Request.Context()), entry); err != nil {
			logger.Warn("record operation log failed", zap.String("actor", actorID), zap.Error(err))
		}
	}
}
