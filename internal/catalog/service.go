package catalog

// ServiceInterface is what the cart, checkout and order packages consume.
type ServiceInterface interface {
	List() ([]Variant, error)
	GetByID(id int) (Variant, error)
	ListByIDs(ids []int) ([]Variant, error)
	Create(v Variant) (Variant, error)
	Update(id int, v Variant) (Variant, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List() ([]Variant, error) {
	return s.repo.List()
}

func (s *Service) GetByID(id int) (Variant, error) {
	return s.repo.GetByID(id)
}

func (s *Service) ListByIDs(ids []int) ([]Variant, error) {
	return s.repo.ListByIDs(ids)
}

func (s *Service) Create(v Variant) (Variant, error) {
	return s.repo.Create(v)
}

func (s *Service) Update(id int, v Variant) (Variant, error) {
	return s.repo.Update(id, v)
}
