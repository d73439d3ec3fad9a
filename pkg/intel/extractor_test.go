package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivelo-ai/leadrouter/pkg/models"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"soy form", "Hola, soy Diego y tengo un restaurante", "Diego"},
		{"me llamo full name", "me llamo Ana López", "Ana López"},
		{"mi nombre es", "mi nombre es Carlos", "Carlos"},
		{"greeting intro", "buenas, soy Marta", "Marta"},
		{"owner phrase is not a name", "soy dueño de una panadería", ""},
		{"no introduction", "quiero más información", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.message)
			if tt.want == "" {
				assert.NotContains(t, got.Fields, models.FieldName)
				return
			}
			require.Contains(t, got.Fields, models.FieldName)
			assert.Equal(t, tt.want, got.Fields[models.FieldName].Value)
			assert.GreaterOrEqual(t, got.Fields[models.FieldName].Confidence, acceptConfidence)
		})
	}
}

func TestExtractNameFromEmailLocalPart(t *testing.T) {
	got := Extract("mi correo es diego.lopez@gmail.com")
	require.Contains(t, got.Fields, models.FieldName)
	assert.Equal(t, "Diego", got.Fields[models.FieldName].Value)
	require.Contains(t, got.Fields, models.FieldEmail)
	assert.Equal(t, "diego.lopez@gmail.com", got.Fields[models.FieldEmail].Value)
}

func TestExtractBusinessType(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"possessive", "tengo un restaurante en el centro", "restaurante"},
		{"possessive feminine", "tengo una tienda de ropa", "tienda"},
		{"mine with vocabulary word", "mi clínica está en Monterrey", "clínica"},
		{"owner", "soy dueña de una barbería", "barbería"},
		{"work", "trabajo en un taller mecánico", "taller"},
		{"direct mention", "el gimnasio no se llena entre semana", "gimnasio"},
		{"misspelling within threshold", "tengo un restaurnte", "restaurante"},
		{"generic negocio rejected", "tengo un negocio", ""},
		{"generic empresa rejected", "mi empresa necesita clientes", ""},
		{"generic local rejected", "tengo un local", ""},
		{"unknown word rejected", "tengo un zeppelin", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.message)
			if tt.want == "" {
				assert.NotContains(t, got.Fields, models.FieldBusinessType)
				return
			}
			require.Contains(t, got.Fields, models.FieldBusinessType)
			assert.Equal(t, tt.want, got.Fields[models.FieldBusinessType].Value)
		})
	}
}

func TestExtractBudget(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"dollar amount", "puedo invertir $300", "300"},
		{"monthly", "unos 250 al mes está bien", "250"},
		{"approximate", "tengo como 200 para esto", "200"},
		{"range", "entre 300 y 500 dólares", "300-500"},
		{"minimum", "300 o más si funciona", "300+"},
		{"maximum", "hasta 400 puedo pagar", "400"},
		{"time of day is not a budget", "nos vemos mañana a las 3:30", ""},
		{"am pm is not a budget", "puedo el martes 3pm", ""},
		{"date is not a budget", "el 3/5 tengo tiempo", ""},
		{"plain number without context", "tengo 3 empleados", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.message)
			if tt.want == "" {
				assert.NotContains(t, got.Fields, models.FieldBudget)
				return
			}
			require.Contains(t, got.Fields, models.FieldBudget)
			assert.Equal(t, tt.want, got.Fields[models.FieldBudget].Value)
		})
	}
}

func TestExtractGoal(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"problem phrase", "tengo un restaurante y estoy perdiendo clientes", "perdiendo clientes"},
		{"need phrase", "necesito más reservaciones los fines de semana", "más reservaciones los fines de semana"},
		{"cannot phrase", "no puedo llenar el salón entre semana", "no puedo llenar el salón entre semana"},
		{"too short rejected", "necesito ayuda", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.message)
			if tt.want == "" {
				assert.NotContains(t, got.Fields, models.FieldGoal)
				return
			}
			require.Contains(t, got.Fields, models.FieldGoal)
			assert.Equal(t, tt.want, got.Fields[models.FieldGoal].Value)
		})
	}
}

func TestExtractContactDetails(t *testing.T) {
	got := Extract("me pueden escribir a ANA@negocio.mx o al 555-123-4567")
	require.Contains(t, got.Fields, models.FieldEmail)
	assert.Equal(t, "ana@negocio.mx", got.Fields[models.FieldEmail].Value)
	require.Contains(t, got.Fields, models.FieldPhone)
	assert.Equal(t, "5551234567", got.Fields[models.FieldPhone].Value)
}

func TestExtractEmptyMessage(t *testing.T) {
	assert.Empty(t, Extract("   ").Fields)
	assert.Empty(t, Extract("").Fields)
}

func TestDetectBudgetConfirmation(t *testing.T) {
	offer := "Podemos empezar con $300 al mes, ¿le funciona?"
	tests := []struct {
		name       string
		message    string
		agentMsg   string
		wantAmount string
		wantOK     bool
	}{
		{"si confirms dollar offer", "sí", offer, "300+", true},
		{"claro confirms", "claro", offer, "300+", true},
		{"dale with punctuation", "dale!", offer, "300+", true},
		{"esta bien multiword", "está bien", offer, "300+", true},
		{"monthly offer without dollar sign", "ok", "serían 250 al mes", "250+", true},
		{"affirmation without an offer", "sí", "¿cómo se llama su negocio?", "", false},
		{"non affirmation", "cuánto cuesta", offer, "", false},
		{"no agent message", "sí", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ok := DetectBudgetConfirmation(tt.message, tt.agentMsg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantAmount, amount)
		})
	}
}

func TestIsConfusion(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"no entiendo", true},
		{"No entendí", true},
		{"¿cómo?", true},
		{"¿a qué se refiere?", true},
		{"no le entiendo", true},
		{"no entiendo por qué cobran tanto", false},
		{"sí", false},
		{"quiero más información", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConfusion(tt.message))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("restaurante", "restaurante"))
	assert.GreaterOrEqual(t, similarity("restaurnte", "restaurante"), fuzzyThreshold)
	assert.Less(t, similarity("taller", "tienda"), fuzzyThreshold)
	assert.Equal(t, 0.0, similarity("", "tienda"))
}
