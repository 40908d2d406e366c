package model

// SeedRecipes returns the default catalog used when nothing has been saved
// yet. Each call returns fresh copies.
func SeedRecipes() []Recipe {
	return []Recipe{
		{
			ID:          "1",
			Name:        "Classic Pancakes",
			Category:    "breakfast",
			CookingTime: 20,
			Difficulty:  "easy",
			Servings:    4,
			ImageURL:    "https://images.pexels.com/photos/376464/pexels-photo-376464.jpeg",
			Ingredients: Lines{
				"2 cups all-purpose flour",
				"2 tablespoons sugar",
				"2 teaspoons baking powder",
				"1 teaspoon salt",
				"2 large eggs",
				"1 3/4 cups milk",
				"1/4 cup melted butter",
			},
			Instructions: Lines{
				"1. Mix dry ingredients in a large bowl",
				"2. Whisk eggs, milk, and melted butter in another bowl",
				"3. Combine wet and dry ingredients until just mixed",
				"4. Heat griddle or pan over medium heat",
				"5. Pour 1/4 cup batter for each pancake",
				"6. Cook until bubbles form, flip and cook until golden",
			},
		},
		{
			ID:          "3",
			Name:        "Chocolate Chip Cookies",
			Category:    "dessert",
			CookingTime: 25,
			Difficulty:  "easy",
			Servings:    24,
			ImageURL:    "https://images.pexels.com/photos/230325/pexels-photo-230325.jpeg",
			Ingredients: Lines{
				"2 1/4 cups flour",
				"1 cup butter, softened",
				"3/4 cup brown sugar",
				"1/2 cup white sugar",
				"2 eggs",
				"1 tsp vanilla",
				"1 tsp baking soda",
				"1/2 tsp salt",
				"2 cups chocolate chips",
			},
			Instructions: Lines{
				"1. Preheat oven to 375°F",
				"2. Cream butter and sugars",
				"3. Beat in eggs and vanilla",
				"4. Mix in flour, baking soda, and salt",
				"5. Stir in chocolate chips",
				"6. Drop spoonfuls on baking sheet",
				"7. Bake 9-11 minutes until golden",
			},
		},
	}
}
