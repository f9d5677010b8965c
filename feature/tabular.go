package feature

import (
	"github.com/rushteam/petmatch/core"
	"github.com/rushteam/petmatch/pkg/conv"
)

// 默认编码 Schema：数值列做 z-score，类别列做 one-hot。
// Fee 同时出现在两组中，与线上服务的编码保持一致。
var (
	DefaultNumeric = []string{core.FieldAge, core.FieldFee}

	DefaultCategorical = []string{
		core.FieldType,
		core.FieldGender,
		core.FieldMaturitySize,
		core.FieldFurLength,
		core.FieldColor,
		core.FieldFee,
	}
)

// Table 是可按行、按列名读取的候选表，catalog.Catalog 实现了它。
type Table interface {
	Len() int
	Record(i int) core.Record
	HasColumn(name string) bool
}

// TabularEncoder 把表格记录编码到同一个向量空间：
// 先输出数值列（按 Numeric 顺序），再依次输出每个类别列的 one-hot 块（按 Categorical 顺序）。
//
// 编码器是无状态的：每次调用都从传入的候选表重新拟合。
// 不同目录内容下得到的向量不可比较；需要复用拟合结果时使用 CachedEncoder。
type TabularEncoder struct {
	Numeric     []string
	Categorical []string
}

// NewTabularEncoder 创建使用默认 Schema 的编码器
func NewTabularEncoder() *TabularEncoder {
	return &TabularEncoder{
		Numeric:     DefaultNumeric,
		Categorical: DefaultCategorical,
	}
}

// FitAndEncode 用 table 拟合编码参数，返回每一行的编码矩阵和查询向量。
//
// table 缺少 Schema 中的列，或 query 缺少对应字段时，返回 CONFIGURATION_ERROR（指明字段）。
// 查询中出现目录里没有的类别时，该类别块编码为全 0。
// table 为空时返回空矩阵，查询向量照常按空拟合编码。
func (e *TabularEncoder) FitAndEncode(table Table, query core.Record) ([][]float64, []float64, error) {
	if err := e.checkQuery(query); err != nil {
		return nil, nil, err
	}
	fitted, err := e.Fit(table)
	if err != nil {
		return nil, nil, err
	}
	q, err := fitted.EncodeQuery(query)
	if err != nil {
		return nil, nil, err
	}
	return fitted.Matrix, q, nil
}

func (e *TabularEncoder) checkQuery(query core.Record) error {
	for _, fields := range [][]string{e.Numeric, e.Categorical} {
		for _, f := range fields {
			if _, ok := query.Attr(f); !ok {
				return core.NewConfigurationError(core.ModuleEncoder, "FitAndEncode: query", f)
			}
		}
	}
	return nil
}

// FittedTable 是在一张候选表上拟合出的编码参数与编码矩阵，拟合后只读。
type FittedTable struct {
	Numeric     []string
	Categorical []string

	// Matrix 候选表逐行的编码结果，调用方不得修改
	Matrix [][]float64

	scaler   *ZScoreNormalizer
	encoders []*OneHotEncoder
	dim      int
}

// Dim 编码向量长度
func (f *FittedTable) Dim() int {
	return f.dim
}

// Fit 在 table 上拟合 z-score 与 one-hot 参数，并编码每一行。
func (e *TabularEncoder) Fit(table Table) (*FittedTable, error) {
	const op = "FitAndEncode: catalog"

	for _, fields := range [][]string{e.Numeric, e.Categorical} {
		for _, f := range fields {
			if !table.HasColumn(f) {
				return nil, core.NewConfigurationError(core.ModuleEncoder, op, f)
			}
		}
	}

	n := table.Len()

	// 数值列
	numCols := make(map[string][]float64, len(e.Numeric))
	for _, f := range e.Numeric {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			v, err := numericAttr(table.Record(i), f, op)
			if err != nil {
				return nil, err
			}
			col[i] = v
		}
		numCols[f] = col
	}

	fitted := &FittedTable{
		Numeric:     e.Numeric,
		Categorical: e.Categorical,
		scaler:      FitZScoreNormalizer(numCols),
		encoders:    make([]*OneHotEncoder, len(e.Categorical)),
		dim:         len(e.Numeric),
	}

	// 类别列
	catCols := make([][]string, len(e.Categorical))
	for j, f := range e.Categorical {
		col := make([]string, n)
		for i := 0; i < n; i++ {
			v, err := categoryAttr(table.Record(i), f, op)
			if err != nil {
				return nil, err
			}
			col[i] = v
		}
		catCols[j] = col
		fitted.encoders[j] = FitOneHotEncoder(col)
		fitted.dim += fitted.encoders[j].Dim()
	}

	fitted.Matrix = make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, fitted.dim)
		for k, f := range e.Numeric {
			row[k] = fitted.scaler.NormalizeValueWithKey(f, numCols[f][i])
		}
		off := len(e.Numeric)
		for j, enc := range fitted.encoders {
			enc.EncodeTo(row[off:off+enc.Dim()], catCols[j][i])
			off += enc.Dim()
		}
		fitted.Matrix[i] = row
	}
	return fitted, nil
}

// EncodeQuery 用已拟合的参数编码查询。
func (f *FittedTable) EncodeQuery(query core.Record) ([]float64, error) {
	const op = "FitAndEncode: query"

	q := make([]float64, f.dim)
	for k, field := range f.Numeric {
		v, err := numericAttr(query, field, op)
		if err != nil {
			return nil, err
		}
		q[k] = f.scaler.NormalizeValueWithKey(field, v)
	}
	off := len(f.Numeric)
	for j, field := range f.Categorical {
		v, err := categoryAttr(query, field, op)
		if err != nil {
			return nil, err
		}
		enc := f.encoders[j]
		enc.EncodeTo(q[off:off+enc.Dim()], v)
		off += enc.Dim()
	}
	return q, nil
}

func numericAttr(r core.Record, field, op string) (float64, error) {
	v, ok := r.Attr(field)
	if !ok {
		return 0, core.NewConfigurationError(core.ModuleEncoder, op, field)
	}
	f, ok := conv.ToFloat64(v)
	if !ok {
		return 0, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			op+": field "+field+" is not numeric")
	}
	return f, nil
}

func categoryAttr(r core.Record, field, op string) (string, error) {
	v, ok := r.Attr(field)
	if !ok {
		return "", core.NewConfigurationError(core.ModuleEncoder, op, field)
	}
	s, ok := CategoryKey(v)
	if !ok {
		return "", core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			op+": field "+field+" is not categorical")
	}
	return s, nil
}
