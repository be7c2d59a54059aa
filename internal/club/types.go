package club

// DTOs for the club platform API. JSON field names follow the upstream
// contract (Portuguese, camelCase), Go names stay idiomatic.

type Activity struct {
	ID           int64  `json:"atividadeId"`
	Name         string `json:"nome"`
	CategoryID   int64  `json:"atividadeCategoriaId"`
	CategoryName string `json:"atividadeCategoriaNome"`

	// Latest date the activity is released for booking, ISO "2006-01-02".
	// Empty means no ceiling beyond the rolling advance window.
	ReleaseCeiling string `json:"dataTempoMaximoLiberacao,omitempty"`

	AllowsFamilyMembers bool `json:"adicionaClienteDependente"`
	AllowsGuests        bool `json:"adicionaClienteConvidado"`
}

type Venue struct {
	ID         int64  `json:"atividadeEspacoId"`
	ActivityID int64  `json:"atividadeId"`
	Name       string `json:"nome"`
	Image      string `json:"imagem,omitempty"`
	Capacity   int    `json:"capacidade"`

	// Populated only by the venues-with-slots listing.
	Slots []Slot `json:"horarios,omitempty"`
}

type Slot struct {
	ID     int64  `json:"agendamentoHorarioId"`
	TypeID int64  `json:"agendamentoTipoId"`
	Date   string `json:"data,omitempty"`
	Start  string `json:"horarioInicio"`
	End    string `json:"horarioFim"`

	MinParticipants int `json:"qtdMinimaCliente"`
	MaxParticipants int `json:"qtdMaximaCliente"`
}

type Member struct {
	ClientID  int64  `json:"clienteId"`
	Name      string `json:"nome"`
	Matricula string `json:"matricula"`
}

type ReservationRequest struct {
	BookingType string `json:"tipoAgendamento"`
	SlotTypeID  int64  `json:"agendamentoTipoId"`
	VenueID     int64  `json:"atividadeEspacoId"`
	ClientID    int64  `json:"clienteId"`
	Date        string `json:"data"`
	SlotStart   string `json:"horarioInicio"`
	SlotEnd     string `json:"horarioFim"`
	Note        string `json:"observacao"`

	Participants []int64 `json:"participantes,omitempty"`
}

type Reservation struct {
	ID int64 `json:"agendamentoId"`
}
