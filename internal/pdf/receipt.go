package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator — интерфейс (удобно мокать в тестах)
type Generator interface {
	GenerateWithdrawalReceipt(data ReceiptData) (string, error)
}

type ReceiptGenerator struct {
	RootDir  string // корень хранения, например "./files"
	FontPath string // путь до TTF с кириллицей
	fontName string
}

type ReceiptData struct {
	WithdrawalID int
	ProfileName  string
	Phone        string
	Amount       string // уже отформатировано, с валютой
	Fee          string
	Net          string
	Method       string
	Destination  string
	CreatedAt    time.Time
	Filename     string // без путей; если пусто — сгенерируем
}

func NewReceiptGenerator(rootDir, fontPath string) *ReceiptGenerator {
	return &ReceiptGenerator{
		RootDir:  filepath.Clean(rootDir),
		FontPath: fontPath,
		fontName: "DejaVu",
	}
}

func (g *ReceiptGenerator) GenerateWithdrawalReceipt(data ReceiptData) (string, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("withdrawal_%d.pdf", data.WithdrawalID)
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Квитанция №%d", data.WithdrawalID), false)
	pdf.SetAuthor("WorkFinder", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	g.addUTF8Font(pdf)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "КВИТАНЦИЯ О ВЫПЛАТЕ", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 12)
	sub := fmt.Sprintf("№ WF-%06d  от  %s",
		data.WithdrawalID,
		data.CreatedAt.Format("02.01.2006"),
	)
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, "Получатель")
	g.kvLine(pdf, "Имя", data.ProfileName)
	g.kvLine(pdf, "Телефон", data.Phone)
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Детали выплаты")
	g.kvLine(pdf, "Сумма", data.Amount)
	g.kvLine(pdf, "Комиссия", data.Fee)
	g.kvLine(pdf, "К выплате", data.Net)
	g.kvLine(pdf, "Способ", data.Method)
	g.kvLine(pdf, "Реквизиты", data.Destination)
	pdf.Ln(2)
	g.hr(pdf)

	pdf.SetFont(g.fontName, "", 10)
	pdf.MultiCell(0, 5,
		"Квитанция сформирована автоматически и действительна без подписи. "+
			"По вопросам выплат обращайтесь в поддержку WorkFinder.",
		"", "L", false)

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10,
			fmt.Sprintf("Стр. %d/{nb}", pdf.PageNo()),
			"", 0, "C", false, 0, "",
		)
	})

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return absPath, nil
}

// ===== helpers =====

func (g *ReceiptGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *ReceiptGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *ReceiptGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *ReceiptGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename) // безопасность
	return filepath.Join(g.RootDir, filename), nil
}

func (g *ReceiptGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}
