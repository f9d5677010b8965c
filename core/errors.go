package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）、模块（Module）和消息（Message）
//   - Field 记录出错的字段（配置错误时使用），Err 保留底层原因
//   - 支持 errors.Is / errors.As，可以穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 图片解码失败：DECODE_ERROR
//   - 模型输入/输出形状不符：SHAPE_ERROR
//   - 目录或查询缺少必需字段：CONFIGURATION_ERROR
//   - 图片/目录记录不存在：NOT_FOUND
//   - 特征库构建时单个文件失败的汇总：EXTRACTION_FAILURE
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "DECODE_ERROR"）
	Message string // 错误消息
	Module  string // 模块名称（如 "vision", "encoder", "store"）
	Field   string // 相关字段（可选）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %q)", msg, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 返回底层错误。
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按 Module + Code 比较，便于与哨兵错误比较：errors.Is(err, ErrImageNotFound)。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Module == t.Module
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的第一个 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建带底层原因的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConfigurationError 创建缺少字段的配置错误，op 为出错的操作名。
func NewConfigurationError(module, op, field string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    ErrorCodeConfiguration,
		Message: op + ": required field is missing",
		Field:   field,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 匹配核心错误代码
	ErrorCodeDecode            = "DECODE_ERROR"        // 无法解析为图片
	ErrorCodeShape             = "SHAPE_ERROR"         // 无法转换为模型要求的张量形状
	ErrorCodeConfiguration     = "CONFIGURATION_ERROR" // 目录或查询缺少必需字段
	ErrorCodeExtractionFailure = "EXTRACTION_FAILURE"  // 特征库构建中被跳过的文件汇总
)

// 模块名称常量
const (
	ModuleCatalog   = "catalog"   // 宠物目录
	ModuleImages    = "images"    // 图片源
	ModuleVision    = "vision"    // 图片特征提取
	ModuleStore     = "store"     // 特征库
	ModuleEncoder   = "encoder"   // 表格特征编码
	ModuleRank      = "rank"      // 相似度排序
	ModuleRecommend = "recommend" // 推荐服务
	ModuleMatch     = "match"     // 图片匹配服务
	ModuleService   = "service"   // 模型服务
)

// 通用错误检查函数

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsDecodeError 检查错误是否为 DECODE_ERROR
func IsDecodeError(err error) bool { return hasCode(err, ErrorCodeDecode) }

// IsShapeError 检查错误是否为 SHAPE_ERROR
func IsShapeError(err error) bool { return hasCode(err, ErrorCodeShape) }

// IsConfigurationError 检查错误是否为 CONFIGURATION_ERROR
func IsConfigurationError(err error) bool { return hasCode(err, ErrorCodeConfiguration) }

// IsExtractionFailure 检查错误是否为 EXTRACTION_FAILURE
func IsExtractionFailure(err error) bool { return hasCode(err, ErrorCodeExtractionFailure) }
